package organization_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/auth"
	"github.com/frahmantamala/procurement-management/internal/organization"
)

func TestOrganizationService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Organization Service Suite")
}

type mockOrgRepository struct {
	worksites map[int64]*organization.Worksite
	divisions map[int64]*organization.Division
	groups    map[int64]*organization.Group
	members   map[int64][]int64
	nextID    int64
}

func newMockOrgRepository() *mockOrgRepository {
	return &mockOrgRepository{
		worksites: make(map[int64]*organization.Worksite),
		divisions: make(map[int64]*organization.Division),
		groups:    make(map[int64]*organization.Group),
		members:   make(map[int64][]int64),
		nextID:    1,
	}
}

func (m *mockOrgRepository) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockOrgRepository) CreateWorksite(w *organization.Worksite) error {
	w.ID = m.id()
	m.worksites[w.ID] = w
	return nil
}

func (m *mockOrgRepository) GetWorksite(id int64) (*organization.Worksite, error) {
	w, ok := m.worksites[id]
	if !ok {
		return nil, errors.New("worksite not found")
	}
	return w, nil
}

func (m *mockOrgRepository) ListWorksites() ([]*organization.Worksite, error) {
	var out []*organization.Worksite
	for _, w := range m.worksites {
		out = append(out, w)
	}
	return out, nil
}

func (m *mockOrgRepository) UpdateWorksite(w *organization.Worksite) error {
	if _, ok := m.worksites[w.ID]; !ok {
		return errors.New("worksite not found")
	}
	m.worksites[w.ID] = w
	return nil
}

func (m *mockOrgRepository) DeleteWorksite(id int64) error {
	if _, ok := m.worksites[id]; !ok {
		return errors.New("worksite not found")
	}
	delete(m.worksites, id)
	return nil
}

func (m *mockOrgRepository) CreateDivision(d *organization.Division, worksiteIDs []int64) error {
	d.ID = m.id()
	m.divisions[d.ID] = d
	return nil
}

func (m *mockOrgRepository) ListDivisions() ([]*organization.Division, error) {
	var out []*organization.Division
	for _, d := range m.divisions {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockOrgRepository) DeleteDivision(id int64) error {
	delete(m.divisions, id)
	return nil
}

func (m *mockOrgRepository) CreateGroup(name string, permissionIDs []int64) (*organization.Group, error) {
	g := &organization.Group{ID: m.id(), Name: name}
	m.groups[g.ID] = g
	return g, nil
}

func (m *mockOrgRepository) GetGroup(id int64) (*organization.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, errors.New("group not found")
	}
	return g, nil
}

func (m *mockOrgRepository) ListGroups() ([]*organization.Group, error) {
	var out []*organization.Group
	for _, g := range m.groups {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockOrgRepository) DeleteGroup(id int64) error {
	if _, ok := m.groups[id]; !ok {
		return errors.New("group not found")
	}
	delete(m.groups, id)
	return nil
}

func (m *mockOrgRepository) GroupMemberCount(id int64) (int64, error) {
	return int64(len(m.members[id])), nil
}

func (m *mockOrgRepository) AddMember(groupID, userID int64) error {
	m.members[groupID] = append(m.members[groupID], userID)
	return nil
}

func (m *mockOrgRepository) RemoveMember(groupID, userID int64) error {
	kept := m.members[groupID][:0]
	for _, id := range m.members[groupID] {
		if id != userID {
			kept = append(kept, id)
		}
	}
	m.members[groupID] = kept
	return nil
}

var _ = Describe("OrganizationService", func() {
	var (
		repo    *mockOrgRepository
		service *organization.Service
		admin   *auth.User
		regular *auth.User
	)

	BeforeEach(func() {
		repo = newMockOrgRepository()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = organization.NewService(repo, logger)

		admin = &auth.User{ID: 1, Username: "admin", IsSuperuser: true}
		regular = &auth.User{ID: 2, Username: "myilmaz"}
	})

	Describe("worksites", func() {
		It("creates with a default country", func() {
			w, err := service.CreateWorksite(admin, organization.WorksiteDTO{
				Address: "Büyükdere Cd. 12",
				City:    "Istanbul",
			})
			Expect(err).To(BeNil())
			Expect(w.Country).To(Equal("Turkey"))
			Expect(w.ID).To(BeNumerically(">", 0))
		})

		It("requires an admin", func() {
			_, err := service.CreateWorksite(regular, organization.WorksiteDTO{
				Address: "Somewhere 1",
				City:    "Ankara",
			})
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("validates required fields", func() {
			_, err := service.CreateWorksite(admin, organization.WorksiteDTO{City: "Izmir"})
			Expect(err).To(HaveOccurred())
		})

		It("refuses to delete the admin's own worksite", func() {
			w, err := service.CreateWorksite(admin, organization.WorksiteDTO{
				Address: "Büyükdere Cd. 12",
				City:    "Istanbul",
			})
			Expect(err).To(BeNil())

			siteAdmin := &auth.User{ID: 3, IsSuperuser: true, WorksiteID: &w.ID}
			Expect(service.DeleteWorksite(siteAdmin, w.ID)).To(Equal(internal.ErrOwnWorksite))

			// another admin may delete it
			Expect(service.DeleteWorksite(admin, w.ID)).To(Succeed())
		})
	})

	Describe("divisions", func() {
		It("records the creating admin", func() {
			d, err := service.CreateDivision(admin, organization.DivisionDTO{
				Name:        "Construction",
				WorksiteIDs: []int64{1},
			})
			Expect(err).To(BeNil())
			Expect(d.CreatedBy).To(Equal(admin.ID))
		})

		It("lists for any authenticated user", func() {
			_, err := service.CreateDivision(admin, organization.DivisionDTO{Name: "Construction"})
			Expect(err).To(BeNil())

			divisions, err := service.ListDivisions(regular)
			Expect(err).To(BeNil())
			Expect(divisions).To(HaveLen(1))
		})
	})

	Describe("groups", func() {
		It("only deletes empty groups", func() {
			g, err := service.CreateGroup(admin, organization.GroupDTO{Name: "Approvers"})
			Expect(err).To(BeNil())

			Expect(service.AddMember(admin, g.ID, organization.MembershipDTO{UserID: regular.ID})).To(Succeed())
			Expect(service.DeleteGroup(admin, g.ID)).To(Equal(internal.ErrGroupNotEmpty))

			Expect(service.RemoveMember(admin, g.ID, regular.ID)).To(Succeed())
			Expect(service.DeleteGroup(admin, g.ID)).To(Succeed())
		})

		It("rejects membership changes on unknown groups", func() {
			err := service.AddMember(admin, 4242, organization.MembershipDTO{UserID: regular.ID})
			Expect(err).To(HaveOccurred())
		})

		It("keeps group administration admin-only", func() {
			_, err := service.CreateGroup(regular, organization.GroupDTO{Name: "Approvers"})
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))

			_, err = service.ListGroups(regular)
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})
	})
})
