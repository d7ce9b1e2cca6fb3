package request_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/core/events"
	"github.com/frahmantamala/procurement-management/internal/request"
)

func TestRequestService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Request Service Suite")
}

// Mock repository backed by maps. Transition applies the guarded update and
// appends the ledger entry the way the real repository does, so the state
// machine behavior is observable end to end.
type mockRequestRepository struct {
	requests       map[int64]*request.Request
	history        map[int64][]*request.HistoryEntry
	nextID         int64
	transitionErr  error
	existingNumber string
}

func newMockRequestRepository() *mockRequestRepository {
	return &mockRequestRepository{
		requests: make(map[int64]*request.Request),
		history:  make(map[int64][]*request.HistoryEntry),
		nextID:   1,
	}
}

func (m *mockRequestRepository) Create(req *request.Request) error {
	req.ID = m.nextID
	m.nextID++
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestRepository) GetByID(id int64) (*request.Request, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, internal.ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (m *mockRequestRepository) Update(req *request.Request) error {
	if _, ok := m.requests[req.ID]; !ok {
		return internal.ErrRequestNotFound
	}
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *mockRequestRepository) Delete(id int64) error {
	delete(m.requests, id)
	return nil
}

func (m *mockRequestRepository) ExistsByNumber(number string) (bool, error) {
	return number == m.existingNumber, nil
}

func (m *mockRequestRepository) ListByCreator(userID int64, filter request.ListFilter) ([]*request.Request, error) {
	var out []*request.Request
	for _, r := range m.requests {
		if r.CreatedBy == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRequestRepository) ListAll(filter request.ListFilter) ([]*request.Request, error) {
	var out []*request.Request
	for _, r := range m.requests {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRequestRepository) ListByApprover(approverID int64, filter request.ListFilter) ([]*request.Request, error) {
	var out []*request.Request
	for _, r := range m.requests {
		if r.CurrentApprover != nil && *r.CurrentApprover == approverID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRequestRepository) ListByStatuses(statuses []request.Status, filter request.ListFilter) ([]*request.Request, error) {
	var out []*request.Request
	for _, r := range m.requests {
		for _, s := range statuses {
			if r.Status == s {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (m *mockRequestRepository) Transition(t request.Transition) error {
	if m.transitionErr != nil {
		return m.transitionErr
	}
	req, ok := m.requests[t.RequestID]
	if !ok {
		return internal.ErrRequestNotFound
	}
	if req.Status != t.ExpectedStatus {
		return internal.NewStaleStateError(string(t.ExpectedStatus), t.Entry.Action)
	}

	req.Status = t.NewStatus
	req.UpdatedAt = time.Now()
	for column, value := range t.Updates {
		switch column {
		case "submitted_at":
			ts := value.(time.Time)
			req.SubmittedAt = &ts
		case "current_approver":
			if value == nil {
				req.CurrentApprover = nil
			} else {
				id := value.(int64)
				req.CurrentApprover = &id
			}
		case "final_approver":
			id := value.(int64)
			req.FinalApprover = &id
		case "revision_count":
			req.RevisionCount = value.(int)
		case "revision_notes":
			req.RevisionNotes = value.(string)
		}
	}

	entry := t.Entry
	entry.ID = int64(len(m.history[t.RequestID]) + 1)
	entry.CreatedAt = time.Now()
	m.history[t.RequestID] = append(m.history[t.RequestID], &entry)
	return nil
}

func (m *mockRequestRepository) History(requestID int64) ([]*request.HistoryEntry, error) {
	return m.history[requestID], nil
}

type mockDirectory struct {
	chains   map[int64][]request.UserRef
	chainErr error
}

func (m *mockDirectory) UserRef(id int64) (*request.UserRef, error) {
	return &request.UserRef{ID: id, FullName: "User"}, nil
}

func (m *mockDirectory) ApprovalChain(userID int64) ([]request.UserRef, error) {
	if m.chainErr != nil {
		return nil, m.chainErr
	}
	return m.chains[userID], nil
}

type mockPublisher struct {
	published []events.Event
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.published = append(m.published, event)
	return nil
}

func (m *mockPublisher) eventTypes() []string {
	types := make([]string, len(m.published))
	for i, e := range m.published {
		types[i] = e.EventType()
	}
	return types
}

var _ = Describe("RequestService", func() {
	var (
		repo      *mockRequestRepository
		directory *mockDirectory
		publisher *mockPublisher
		service   *request.Service
		ctx       context.Context

		creator    request.Actor
		supervisor request.Actor
		manager    request.Actor
		purchaser  request.Actor
		admin      request.Actor
		outsider   request.Actor
	)

	BeforeEach(func() {
		repo = newMockRequestRepository()
		directory = &mockDirectory{chains: make(map[int64][]request.UserRef)}
		publisher = &mockPublisher{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = request.NewService(repo, directory, publisher, logger)
		ctx = context.Background()

		creator = request.Actor{ID: 1, FullName: "Mehmet Yilmaz"}
		supervisor = request.Actor{ID: 2, FullName: "Ayse Demir", Permissions: []string{"approve_requests"}}
		manager = request.Actor{ID: 3, FullName: "Deniz Acar", Permissions: []string{"approve_requests"}}
		purchaser = request.Actor{ID: 4, FullName: "Emre Kaya", Permissions: []string{"can_purchase"}}
		admin = request.Actor{ID: 5, FullName: "System Admin", IsSuperuser: true}
		outsider = request.Actor{ID: 6, FullName: "Random User"}

		directory.chains[creator.ID] = []request.UserRef{
			{ID: supervisor.ID, FullName: supervisor.FullName},
			{ID: manager.ID, FullName: manager.FullName},
		}
	})

	createDraft := func() *request.Request {
		req, err := service.CreateRequest(creator, request.CreateRequestDTO{
			Item:     "Rebar 12mm",
			Quantity: "120.50",
			Unit:     "ton",
			Reason:   "foundation work",
		})
		Expect(err).To(BeNil())
		return req
	}

	submitDraft := func() *request.Request {
		req := createDraft()
		submitted, err := service.Submit(ctx, creator, req.ID, request.TransitionDTO{})
		Expect(err).To(BeNil())
		return submitted
	}

	approveRequest := func() *request.Request {
		req := submitDraft()
		approved, err := service.Approve(ctx, supervisor, req.ID, request.TransitionDTO{})
		Expect(err).To(BeNil())
		return approved
	}

	Describe("CreateRequest", func() {
		It("creates a draft with a generated request number", func() {
			req := createDraft()

			Expect(req.Status).To(Equal(request.StatusDraft))
			Expect(req.RequestNumber).To(MatchRegexp(`^REQ-\d{4}-[0-9A-F]{6}$`))
			Expect(req.CreatedBy).To(Equal(creator.ID))
			Expect(req.Quantity.String()).To(Equal("120.5"))
		})

		It("rejects a missing item", func() {
			_, err := service.CreateRequest(creator, request.CreateRequestDTO{
				Quantity: "1",
				Unit:     "pieces",
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects an unknown unit", func() {
			_, err := service.CreateRequest(creator, request.CreateRequestDTO{
				Item:     "Cement",
				Quantity: "10",
				Unit:     "bags",
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a non-positive quantity", func() {
			_, err := service.CreateRequest(creator, request.CreateRequestDTO{
				Item:     "Cement",
				Quantity: "0",
				Unit:     "kg",
			})
			Expect(err).To(HaveOccurred())
		})

		It("allows a draft without a reason", func() {
			req, err := service.CreateRequest(creator, request.CreateRequestDTO{
				Item:     "Cement",
				Quantity: "10",
				Unit:     "kg",
			})
			Expect(err).To(BeNil())
			Expect(req.Reason).To(BeEmpty())
		})
	})

	Describe("Submit", func() {
		It("routes the request to the first supervisor in the chain", func() {
			req := submitDraft()

			Expect(req.Status).To(Equal(request.StatusPending))
			Expect(req.SubmittedAt).NotTo(BeNil())
			Expect(req.CurrentApprover).NotTo(BeNil())
			Expect(*req.CurrentApprover).To(Equal(supervisor.ID))
		})

		It("records a submitted ledger entry at level 0", func() {
			req := submitDraft()

			history, err := service.History(creator, req.ID)
			Expect(err).To(BeNil())
			Expect(history).To(HaveLen(1))
			Expect(history[0].Action).To(Equal("submitted"))
			Expect(history[0].UserID).To(Equal(creator.ID))
			Expect(history[0].Level).To(Equal(0))
		})

		It("leaves the approver unassigned when the creator has no supervisor", func() {
			directory.chains[creator.ID] = nil
			req := createDraft()

			submitted, err := service.Submit(ctx, creator, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())
			Expect(submitted.Status).To(Equal(request.StatusPending))
			Expect(submitted.CurrentApprover).To(BeNil())
		})

		It("refuses submission without a reason", func() {
			req, err := service.CreateRequest(creator, request.CreateRequestDTO{
				Item:     "Cement",
				Quantity: "10",
				Unit:     "kg",
			})
			Expect(err).To(BeNil())

			_, err = service.Submit(ctx, creator, req.ID, request.TransitionDTO{})
			Expect(err).To(HaveOccurred())

			unchanged, gerr := service.GetRequest(creator, req.ID)
			Expect(gerr).To(BeNil())
			Expect(unchanged.Status).To(Equal(request.StatusDraft))
		})

		It("refuses submission by anyone but the creator", func() {
			req := createDraft()

			_, err := service.Submit(ctx, admin, req.ID, request.TransitionDTO{})
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("publishes a transition event", func() {
			submitDraft()
			Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeRequestTransitioned))
		})
	})

	Describe("Approve", func() {
		It("records the final approver and clears the current one", func() {
			req := approveRequest()

			Expect(req.Status).To(Equal(request.StatusApproved))
			Expect(req.FinalApprover).NotTo(BeNil())
			Expect(*req.FinalApprover).To(Equal(supervisor.ID))
			Expect(req.CurrentApprover).To(BeNil())
		})

		It("writes the approver's chain position to the ledger", func() {
			req := approveRequest()

			history, err := service.History(admin, req.ID)
			Expect(err).To(BeNil())
			Expect(history).To(HaveLen(2))
			Expect(history[1].Action).To(Equal("approved"))
			Expect(history[1].Level).To(Equal(1))
		})

		It("publishes an approval event on top of the transition event", func() {
			approveRequest()
			Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeRequestApproved))
		})

		It("refuses an approver who is not the current one", func() {
			req := submitDraft()

			_, err := service.Approve(ctx, manager, req.ID, request.TransitionDTO{})
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("lets a superuser approve regardless of the chain", func() {
			req := submitDraft()

			approved, err := service.Approve(ctx, admin, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())
			Expect(approved.Status).To(Equal(request.StatusApproved))
		})

		It("approves from in_review as well", func() {
			req := submitDraft()
			_, err := service.MoveToReview(ctx, supervisor, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())

			approved, err := service.Approve(ctx, supervisor, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())
			Expect(approved.Status).To(Equal(request.StatusApproved))
		})
	})

	Describe("Reject", func() {
		It("requires notes", func() {
			req := submitDraft()

			_, err := service.Reject(ctx, supervisor, req.ID, request.TransitionDTO{})
			Expect(err).To(Equal(internal.ErrMissingReason))

			unchanged, gerr := service.GetRequest(creator, req.ID)
			Expect(gerr).To(BeNil())
			Expect(unchanged.Status).To(Equal(request.StatusPending))
		})

		It("does not accept whitespace-only notes", func() {
			req := submitDraft()

			_, err := service.Reject(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "  \t\n "})
			Expect(err).To(Equal(internal.ErrMissingReason))

			unchanged, gerr := service.GetRequest(creator, req.ID)
			Expect(gerr).To(BeNil())
			Expect(unchanged.Status).To(Equal(request.StatusPending))
		})

		It("moves the request to rejected and clears the approver", func() {
			req := submitDraft()

			rejected, err := service.Reject(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "over budget"})
			Expect(err).To(BeNil())
			Expect(rejected.Status).To(Equal(request.StatusRejected))
			Expect(rejected.CurrentApprover).To(BeNil())
		})

		It("lets purchasing reject an unobtainable item during purchasing", func() {
			req := approveRequest()
			_, err := service.AssignPurchasing(ctx, purchaser, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())

			rejected, err := service.Reject(ctx, purchaser, req.ID, request.TransitionDTO{Notes: "discontinued item"})
			Expect(err).To(BeNil())
			Expect(rejected.Status).To(Equal(request.StatusRejected))
		})

		It("publishes a rejection event carrying the notes", func() {
			req := submitDraft()
			_, err := service.Reject(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "no"})
			Expect(err).To(BeNil())
			Expect(publisher.eventTypes()).To(ContainElement(events.EventTypeRequestRejected))
		})

		It("refuses rejection once the request is terminal", func() {
			req := submitDraft()
			_, err := service.Reject(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "no"})
			Expect(err).To(BeNil())

			_, err = service.Reject(ctx, admin, req.ID, request.TransitionDTO{Notes: "again"})
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTransition))
		})
	})

	Describe("RequestRevision and Resubmit", func() {
		It("stores the revision notes on the request", func() {
			req := submitDraft()

			revised, err := service.RequestRevision(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "split into two orders"})
			Expect(err).To(BeNil())
			Expect(revised.Status).To(Equal(request.StatusRevisionRequested))
			Expect(revised.RevisionNotes).To(Equal("split into two orders"))
		})

		It("requires notes for a revision request", func() {
			req := submitDraft()

			_, err := service.RequestRevision(ctx, supervisor, req.ID, request.TransitionDTO{})
			Expect(err).To(Equal(internal.ErrMissingReason))

			_, err = service.RequestRevision(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "   "})
			Expect(err).To(Equal(internal.ErrMissingReason))
		})

		It("increments the revision counter and clears notes on resubmit", func() {
			req := submitDraft()
			_, err := service.RequestRevision(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "fix quantity"})
			Expect(err).To(BeNil())

			resubmitted, err := service.Resubmit(ctx, creator, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())
			Expect(resubmitted.Status).To(Equal(request.StatusPending))
			Expect(resubmitted.RevisionCount).To(Equal(1))
			Expect(resubmitted.RevisionNotes).To(BeEmpty())
			Expect(resubmitted.CurrentApprover).NotTo(BeNil())
			Expect(*resubmitted.CurrentApprover).To(Equal(supervisor.ID))
		})

		It("records the resubmission as a distinct ledger action", func() {
			req := submitDraft()
			_, err := service.RequestRevision(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "fix quantity"})
			Expect(err).To(BeNil())
			_, err = service.Resubmit(ctx, creator, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())

			history, herr := service.History(creator, req.ID)
			Expect(herr).To(BeNil())
			Expect(history[len(history)-1].Action).To(Equal("revised"))
		})

		It("only the creator may resubmit", func() {
			req := submitDraft()
			_, err := service.RequestRevision(ctx, supervisor, req.ID, request.TransitionDTO{Notes: "fix"})
			Expect(err).To(BeNil())

			_, err = service.Resubmit(ctx, supervisor, req.ID, request.TransitionDTO{})
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("purchasing flow", func() {
		It("walks approved through purchasing, ordered, delivered and completed", func() {
			req := approveRequest()

			for _, step := range []struct {
				fn     func(context.Context, request.Actor, int64, request.TransitionDTO) (*request.Request, error)
				status request.Status
			}{
				{service.AssignPurchasing, request.StatusPurchasing},
				{service.MarkOrdered, request.StatusOrdered},
				{service.MarkDelivered, request.StatusDelivered},
				{service.MarkCompleted, request.StatusCompleted},
			} {
				updated, err := step.fn(ctx, purchaser, req.ID, request.TransitionDTO{})
				Expect(err).To(BeNil())
				Expect(updated.Status).To(Equal(step.status))
			}
		})

		It("refuses purchasing actions without the permission", func() {
			req := approveRequest()

			_, err := service.AssignPurchasing(ctx, outsider, req.ID, request.TransitionDTO{})
			Expect(err).To(HaveOccurred())
		})

		It("lets the creator close out their delivered request", func() {
			req := approveRequest()
			_, err := service.AssignPurchasing(ctx, purchaser, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())
			_, err = service.MarkOrdered(ctx, purchaser, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())
			_, err = service.MarkDelivered(ctx, purchaser, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())

			completed, err := service.MarkCompleted(ctx, creator, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())
			Expect(completed.Status).To(Equal(request.StatusCompleted))
		})

		It("refuses to skip the ordered step", func() {
			req := approveRequest()
			_, err := service.AssignPurchasing(ctx, purchaser, req.ID, request.TransitionDTO{})
			Expect(err).To(BeNil())

			_, err = service.MarkDelivered(ctx, purchaser, req.ID, request.TransitionDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTransition))
		})
	})

	Describe("optimistic concurrency", func() {
		It("rejects a transition whose expected status is stale", func() {
			req := submitDraft()

			_, err := service.Approve(ctx, supervisor, req.ID, request.TransitionDTO{ExpectedStatus: "in_review"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeStaleState))

			unchanged, gerr := service.GetRequest(creator, req.ID)
			Expect(gerr).To(BeNil())
			Expect(unchanged.Status).To(Equal(request.StatusPending))
		})

		It("surfaces the storage-level stale error from a racing writer", func() {
			req := submitDraft()
			repo.transitionErr = internal.NewStaleStateError("pending", "approve")

			_, err := service.Approve(ctx, supervisor, req.ID, request.TransitionDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeStaleState))
		})
	})

	Describe("drafts", func() {
		It("lets the creator edit a draft", func() {
			req := createDraft()

			updated, err := service.UpdateDraft(creator, req.ID, request.UpdateRequestDTO{
				Item:     "Rebar 16mm",
				Quantity: "80",
				Unit:     "ton",
				Reason:   "spec change",
			})
			Expect(err).To(BeNil())
			Expect(updated.Item).To(Equal("Rebar 16mm"))
		})

		It("refuses edits after submission", func() {
			req := submitDraft()

			_, err := service.UpdateDraft(creator, req.ID, request.UpdateRequestDTO{
				Item:     "Rebar 16mm",
				Quantity: "80",
				Unit:     "ton",
			})
			Expect(err).To(Equal(internal.ErrCannotModify))
		})

		It("refuses edits by non-creators", func() {
			req := createDraft()

			_, err := service.UpdateDraft(outsider, req.ID, request.UpdateRequestDTO{
				Item:     "Rebar 16mm",
				Quantity: "80",
				Unit:     "ton",
			})
			Expect(err).To(HaveOccurred())
		})

		It("deletes a draft but never a submitted request", func() {
			draft := createDraft()
			Expect(service.DeleteDraft(creator, draft.ID)).To(Succeed())

			submitted := submitDraft()
			Expect(service.DeleteDraft(creator, submitted.ID)).To(Equal(internal.ErrCannotModify))
		})
	})

	Describe("visibility", func() {
		It("hides requests from unrelated users", func() {
			req := submitDraft()

			_, err := service.GetRequest(outsider, req.ID)
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("shows drafts only to the creator and admins", func() {
			req := createDraft()

			_, err := service.GetRequest(purchaser, req.ID)
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))

			_, err = service.GetRequest(admin, req.ID)
			Expect(err).To(BeNil())
		})

		It("lets purchasing view submitted requests", func() {
			req := submitDraft()

			_, err := service.GetRequest(purchaser, req.ID)
			Expect(err).To(BeNil())
		})

		It("restricts ListAll to view-all holders", func() {
			submitDraft()

			_, err := service.ListAll(outsider, request.ListFilter{})
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))

			all, err := service.ListAll(admin, request.ListFilter{})
			Expect(err).To(BeNil())
			Expect(all).To(HaveLen(1))
		})
	})

	Describe("ListPendingApproval", func() {
		It("returns the requests assigned to the approver", func() {
			req := submitDraft()

			pending, err := service.ListPendingApproval(supervisor, request.ListFilter{})
			Expect(err).To(BeNil())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].ID).To(Equal(req.ID))

			none, err := service.ListPendingApproval(manager, request.ListFilter{})
			Expect(err).To(BeNil())
			Expect(none).To(BeEmpty())
		})

		It("shows superusers everything pending or in review", func() {
			submitDraft()

			pending, err := service.ListPendingApproval(admin, request.ListFilter{})
			Expect(err).To(BeNil())
			Expect(pending).To(HaveLen(1))
		})
	})

	Describe("directory failures", func() {
		It("does not commit a submit when the chain lookup fails", func() {
			req := createDraft()
			directory.chainErr = errors.New("directory offline")

			_, err := service.Submit(ctx, creator, req.ID, request.TransitionDTO{})
			Expect(err).To(HaveOccurred())

			directory.chainErr = nil
			unchanged, gerr := service.GetRequest(creator, req.ID)
			Expect(gerr).To(BeNil())
			Expect(unchanged.Status).To(Equal(request.StatusDraft))
		})
	})
})
