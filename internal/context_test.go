package internal_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/procurement-management/internal"
)

func TestInternal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal Suite")
}

var _ = Describe("acting user context", func() {
	It("round-trips the stamped user id", func() {
		ctx := internal.ContextWithActingUser(context.Background(), 42)

		userID, ok := internal.ActingUserID(ctx)
		Expect(ok).To(BeTrue())
		Expect(userID).To(Equal(int64(42)))
	})

	It("reports absence on an unstamped context", func() {
		_, ok := internal.ActingUserID(context.Background())
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("WithTimeout", func() {
	It("honors the given duration", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically(">", 30*time.Second))
	})

	It("substitutes a default for a zero duration", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), 0)
		defer cancel()

		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically(">", 0))
		Expect(time.Until(deadline)).To(BeNumerically("<=", 5*time.Second))
	})
})
