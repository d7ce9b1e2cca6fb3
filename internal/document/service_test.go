package document_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/core/events"
	"github.com/frahmantamala/procurement-management/internal/document"
	"github.com/frahmantamala/procurement-management/internal/request"
)

func TestDocumentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Service Suite")
}

type mockDocumentRepository struct {
	docs map[uuid.UUID]*document.Document
}

func newMockDocumentRepository() *mockDocumentRepository {
	return &mockDocumentRepository{docs: make(map[uuid.UUID]*document.Document)}
}

func (m *mockDocumentRepository) Create(doc *document.Document) error {
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *mockDocumentRepository) GetByID(id uuid.UUID) (*document.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	copied := *doc
	return &copied, nil
}

func (m *mockDocumentRepository) ListByRequest(requestID int64) ([]*document.Document, error) {
	var out []*document.Document
	for _, doc := range m.docs {
		if doc.RequestID == requestID && doc.Status != document.StatusDeleted {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockDocumentRepository) MarkUploaded(id uuid.UUID, uploadedAt time.Time) error {
	doc, ok := m.docs[id]
	if !ok {
		return errors.New("document not found")
	}
	doc.Status = document.StatusUploaded
	doc.UploadedAt = &uploadedAt
	return nil
}

func (m *mockDocumentRepository) MarkDeleted(id uuid.UUID) error {
	doc, ok := m.docs[id]
	if !ok {
		return errors.New("document not found")
	}
	doc.Status = document.StatusDeleted
	return nil
}

type mockObjectStorage struct {
	objects   map[string]bool
	putErr    error
	existsErr error
	removed   []string
	putCalls  []string
	getCalls  []string
}

func newMockObjectStorage() *mockObjectStorage {
	return &mockObjectStorage{objects: make(map[string]bool)}
}

func (m *mockObjectStorage) PresignedPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	m.putCalls = append(m.putCalls, objectName)
	return "https://storage.local/put/" + objectName, nil
}

func (m *mockObjectStorage) PresignedGetURL(ctx context.Context, objectName, fileName string, expiry time.Duration) (string, error) {
	m.getCalls = append(m.getCalls, objectName)
	return "https://storage.local/get/" + objectName, nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, objectName string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.objects[objectName], nil
}

func (m *mockObjectStorage) Remove(ctx context.Context, objectName string) error {
	m.removed = append(m.removed, objectName)
	delete(m.objects, objectName)
	return nil
}

type mockRequestGateway struct {
	requests map[int64]*request.Request
	denyAll  bool
}

func (m *mockRequestGateway) GetRequest(actor request.Actor, id int64) (*request.Request, error) {
	if m.denyAll {
		return nil, internal.ErrUnauthorizedAccess
	}
	req, ok := m.requests[id]
	if !ok {
		return nil, internal.ErrRequestNotFound
	}
	return req, nil
}

type mockEventPublisher struct {
	published []events.Event
}

func (m *mockEventPublisher) Publish(ctx context.Context, event events.Event) error {
	m.published = append(m.published, event)
	return nil
}

var _ = Describe("DocumentService", func() {
	var (
		repo      *mockDocumentRepository
		storage   *mockObjectStorage
		gateway   *mockRequestGateway
		publisher *mockEventPublisher
		service   *document.Service
		ctx       context.Context

		purchaser request.Actor
		creator   request.Actor
	)

	validDTO := func(docType string) document.CreateDocumentDTO {
		return document.CreateDocumentDTO{
			DocumentType: docType,
			FileName:     "quote.pdf",
			FileSize:     1024,
			FileType:     "application/pdf",
		}
	}

	BeforeEach(func() {
		repo = newMockDocumentRepository()
		storage = newMockObjectStorage()
		gateway = &mockRequestGateway{requests: map[int64]*request.Request{
			1: {ID: 1, RequestNumber: "REQ-2026-ABCDEF", Status: request.StatusPurchasing, CreatedBy: 10},
			2: {ID: 2, RequestNumber: "REQ-2026-FEDCBA", Status: request.StatusOrdered, CreatedBy: 10},
			3: {ID: 3, RequestNumber: "REQ-2026-AAAAAA", Status: request.StatusPending, CreatedBy: 10},
		}}
		publisher = &mockEventPublisher{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = document.NewService(repo, storage, gateway, publisher, 15*time.Minute, logger)
		ctx = context.Background()

		purchaser = request.Actor{ID: 4, FullName: "Elif Kaya", Permissions: []string{"can_purchase"}}
		creator = request.Actor{ID: 10, FullName: "Mehmet Yilmaz"}
	})

	declare := func(requestID int64, dto document.CreateDocumentDTO) *document.UploadTicket {
		ticket, err := service.CreateDocument(ctx, purchaser, requestID, dto)
		Expect(err).To(BeNil())
		return ticket
	}

	Describe("CreateDocument", func() {
		It("records a pending document and presigns the upload", func() {
			ticket := declare(1, validDTO(document.TypeQuote))

			Expect(ticket.Document.Status).To(Equal(document.StatusPending))
			Expect(ticket.Document.RequestID).To(Equal(int64(1)))
			Expect(ticket.UploadURL).To(ContainSubstring("https://storage.local/put/"))
			Expect(storage.putCalls).To(HaveLen(1))

			stored, err := repo.GetByID(ticket.Document.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(document.StatusPending))
		})

		It("gates document types to the matching request status", func() {
			_, err := service.CreateDocument(ctx, purchaser, 1, validDTO(document.TypeReceipt))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDocumentNotUploadable))

			// dispatch notes attach once the order is placed
			ticket := declare(2, validDTO(document.TypeDispatchNote))
			Expect(ticket.Document.DocumentType).To(Equal(document.TypeDispatchNote))
		})

		It("rejects uploads before the request is approved", func() {
			_, err := service.CreateDocument(ctx, purchaser, 3, validDTO(document.TypeQuote))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDocumentNotUploadable))
		})

		It("denies actors without purchasing rights", func() {
			_, err := service.CreateDocument(ctx, creator, 1, validDTO(document.TypeQuote))
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("rejects an oversized file", func() {
			dto := validDTO(document.TypeQuote)
			dto.FileSize = 26 << 20
			_, err := service.CreateDocument(ctx, purchaser, 1, dto)
			Expect(err).To(HaveOccurred())
		})

		It("rejects an unsupported file type", func() {
			dto := validDTO(document.TypeQuote)
			dto.FileType = "application/zip"
			_, err := service.CreateDocument(ctx, purchaser, 1, dto)
			Expect(err).To(HaveOccurred())
		})

		It("cleans up the record when presigning fails", func() {
			storage.putErr = errors.New("storage unreachable")

			_, err := service.CreateDocument(ctx, purchaser, 1, validDTO(document.TypeQuote))
			Expect(err).To(HaveOccurred())

			for _, doc := range repo.docs {
				Expect(doc.Status).To(Equal(document.StatusDeleted))
			}
		})
	})

	Describe("ConfirmUpload", func() {
		It("marks the document uploaded once the object exists", func() {
			ticket := declare(1, validDTO(document.TypeQuote))
			storage.objects[ticket.Document.ObjectName] = true

			confirmed, err := service.ConfirmUpload(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(BeNil())
			Expect(confirmed.Status).To(Equal(document.StatusUploaded))
			Expect(confirmed.UploadedAt).NotTo(BeNil())

			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].EventType()).To(Equal(events.EventTypeDocumentUploaded))
		})

		It("soft-deletes the record when the object never arrived", func() {
			ticket := declare(1, validDTO(document.TypeQuote))

			_, err := service.ConfirmUpload(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(Equal(internal.ErrUploadNotConfirmed))

			stored := repo.docs[ticket.Document.ID]
			Expect(stored.Status).To(Equal(document.StatusDeleted))
			Expect(publisher.published).To(BeEmpty())
		})

		It("is idempotent for an already uploaded document", func() {
			ticket := declare(1, validDTO(document.TypeQuote))
			storage.objects[ticket.Document.ObjectName] = true

			_, err := service.ConfirmUpload(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(BeNil())

			confirmed, err := service.ConfirmUpload(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(BeNil())
			Expect(confirmed.Status).To(Equal(document.StatusUploaded))
			Expect(publisher.published).To(HaveLen(1))
		})

		It("rejects unknown documents", func() {
			_, err := service.ConfirmUpload(ctx, purchaser, uuid.New())
			Expect(err).To(Equal(internal.ErrDocumentNotFound))
		})
	})

	Describe("DownloadURL", func() {
		It("presigns a GET only for uploaded documents", func() {
			ticket := declare(1, validDTO(document.TypeQuote))

			_, err := service.DownloadURL(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(Equal(internal.ErrDocumentNotFound))

			storage.objects[ticket.Document.ObjectName] = true
			_, err = service.ConfirmUpload(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(BeNil())

			dl, err := service.DownloadURL(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(BeNil())
			Expect(dl.DownloadURL).To(ContainSubstring("https://storage.local/get/"))
		})

		It("follows the parent request's visibility", func() {
			ticket := declare(1, validDTO(document.TypeQuote))
			storage.objects[ticket.Document.ObjectName] = true
			_, err := service.ConfirmUpload(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(BeNil())

			gateway.denyAll = true
			_, err = service.DownloadURL(ctx, purchaser, ticket.Document.ID)
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("ListForRequest", func() {
		It("hides soft-deleted documents", func() {
			first := declare(1, validDTO(document.TypeQuote))
			second := declare(1, validDTO(document.TypeQuote))
			Expect(service.Delete(ctx, purchaser, second.Document.ID)).To(Succeed())

			docs, err := service.ListForRequest(purchaser, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal(first.Document.ID))
		})
	})

	Describe("Delete", func() {
		It("soft-deletes the record and removes the object", func() {
			ticket := declare(1, validDTO(document.TypeQuote))
			storage.objects[ticket.Document.ObjectName] = true

			Expect(service.Delete(ctx, purchaser, ticket.Document.ID)).To(Succeed())
			Expect(repo.docs[ticket.Document.ID].Status).To(Equal(document.StatusDeleted))
			Expect(storage.removed).To(ContainElement(ticket.Document.ObjectName))
		})

		It("denies actors without purchasing rights", func() {
			ticket := declare(1, validDTO(document.TypeQuote))
			Expect(service.Delete(ctx, creator, ticket.Document.ID)).To(Equal(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("without configured storage", func() {
		It("refuses uploads and downloads", func() {
			disabled := document.NewService(repo, nil, gateway, publisher, 0,
				slog.New(slog.NewTextHandler(io.Discard, nil)))

			_, err := disabled.CreateDocument(ctx, purchaser, 1, validDTO(document.TypeQuote))
			Expect(err).To(HaveOccurred())

			_, err = disabled.ConfirmUpload(ctx, purchaser, uuid.New())
			Expect(err).To(HaveOccurred())

			_, err = disabled.DownloadURL(ctx, purchaser, uuid.New())
			Expect(err).To(HaveOccurred())
		})
	})
})
