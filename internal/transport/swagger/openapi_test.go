package swagger_test

import (
	"context"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile(filepath.Join("..", "..", "..", "api", "openapi.yml"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("validates against the OpenAPI 3 schema", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents the request lifecycle endpoints", func() {
		for _, path := range []string{
			"/requests",
			"/requests/{id}",
			"/requests/{id}/submit",
			"/requests/{id}/approve",
			"/requests/{id}/reject",
			"/requests/{id}/request-revision",
			"/requests/{id}/resubmit",
			"/requests/{id}/assign-purchasing",
			"/requests/{id}/mark-ordered",
			"/requests/{id}/mark-delivered",
			"/requests/{id}/mark-completed",
			"/requests/{id}/history",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("documents the document upload flow", func() {
		for _, path := range []string{
			"/requests/{id}/documents",
			"/documents/{documentID}/confirm",
			"/documents/{documentID}/download",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("declares every request status in the schema", func() {
		schema := doc.Components.Schemas["Request"]
		Expect(schema).NotTo(BeNil())
		status := schema.Value.Properties["status"]
		Expect(status).NotTo(BeNil())
		Expect(status.Value.Enum).To(HaveLen(10))
	})
})
