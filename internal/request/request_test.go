package request_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/procurement-management/internal/request"
)

var _ = Describe("transition table", func() {
	DescribeTable("Destination",
		func(action request.Action, from request.Status, want request.Status, ok bool) {
			got, valid := request.Destination(action, from)
			Expect(valid).To(Equal(ok))
			if ok {
				Expect(got).To(Equal(want))
			}
		},
		Entry("submit from draft", request.ActionSubmit, request.StatusDraft, request.StatusPending, true),
		Entry("submit from pending is invalid", request.ActionSubmit, request.StatusPending, request.Status(""), false),
		Entry("move to review from pending", request.ActionMoveToReview, request.StatusPending, request.StatusInReview, true),
		Entry("approve from pending", request.ActionApprove, request.StatusPending, request.StatusApproved, true),
		Entry("approve from in_review", request.ActionApprove, request.StatusInReview, request.StatusApproved, true),
		Entry("approve from draft is invalid", request.ActionApprove, request.StatusDraft, request.Status(""), false),
		Entry("reject from purchasing", request.ActionReject, request.StatusPurchasing, request.StatusRejected, true),
		Entry("reject from rejected is invalid", request.ActionReject, request.StatusRejected, request.Status(""), false),
		Entry("revision from in_review", request.ActionRequestRevision, request.StatusInReview, request.StatusRevisionRequested, true),
		Entry("resubmit from revision_requested", request.ActionResubmit, request.StatusRevisionRequested, request.StatusPending, true),
		Entry("assign purchasing from approved", request.ActionAssignPurchasing, request.StatusApproved, request.StatusPurchasing, true),
		Entry("ordered from purchasing", request.ActionMarkOrdered, request.StatusPurchasing, request.StatusOrdered, true),
		Entry("delivered from ordered", request.ActionMarkDelivered, request.StatusOrdered, request.StatusDelivered, true),
		Entry("completed from delivered", request.ActionMarkCompleted, request.StatusDelivered, request.StatusCompleted, true),
		Entry("completed from completed is invalid", request.ActionMarkCompleted, request.StatusCompleted, request.Status(""), false),
	)

	It("treats rejected and completed as terminal", func() {
		Expect(request.IsTerminal(request.StatusRejected)).To(BeTrue())
		Expect(request.IsTerminal(request.StatusCompleted)).To(BeTrue())
		Expect(request.IsTerminal(request.StatusApproved)).To(BeFalse())
	})

	It("requires notes only for reject and request_revision", func() {
		Expect(request.NotesRequired(request.ActionReject)).To(BeTrue())
		Expect(request.NotesRequired(request.ActionRequestRevision)).To(BeTrue())
		Expect(request.NotesRequired(request.ActionApprove)).To(BeFalse())
		Expect(request.NotesRequired(request.ActionSubmit)).To(BeFalse())
	})

	It("gives every action a distinct ledger name", func() {
		seen := map[string]request.Action{}
		for _, action := range []request.Action{
			request.ActionSubmit, request.ActionMoveToReview, request.ActionApprove,
			request.ActionReject, request.ActionRequestRevision, request.ActionResubmit,
			request.ActionAssignPurchasing, request.ActionMarkOrdered,
			request.ActionMarkDelivered, request.ActionMarkCompleted,
		} {
			name := request.HistoryAction(action)
			Expect(seen).NotTo(HaveKey(name), "ledger name %q reused", name)
			seen[name] = action
		}
	})
})

var _ = Describe("NewRequestNumber", func() {
	It("embeds the year and a six character suffix", func() {
		number := request.NewRequestNumber(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
		Expect(number).To(MatchRegexp(`^REQ-2026-[0-9A-F]{6}$`))
	})

	It("varies between calls", func() {
		now := time.Now()
		Expect(request.NewRequestNumber(now)).NotTo(Equal(request.NewRequestNumber(now)))
	})
})
