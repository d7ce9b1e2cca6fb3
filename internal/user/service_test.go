package user_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/user"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

type mockUserRepository struct {
	users  map[int64]*user.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[int64]*user.User),
		nextID: 1,
	}
}

func (m *mockUserRepository) add(u *user.User) *user.User {
	if u.ID == 0 {
		u.ID = m.nextID
		m.nextID++
	} else if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepository) Create(u *user.User, passwordHash string) error {
	m.add(u)
	return nil
}

func (m *mockUserRepository) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepository) GetByUsername(username string) (*user.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockUserRepository) List(limit, offset int) ([]*user.User, error) {
	var out []*user.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepository) Update(u *user.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return errors.New("user not found")
	}
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

func (m *mockUserRepository) SetPassword(id int64, passwordHash string) error {
	if _, ok := m.users[id]; !ok {
		return errors.New("user not found")
	}
	return nil
}

func (m *mockUserRepository) SetSupervisor(id int64, supervisorID *int64) error {
	u, ok := m.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.SupervisorID = supervisorID
	return nil
}

func (m *mockUserRepository) SoftDelete(id int64) error {
	u, ok := m.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.IsActive = false
	return nil
}

func (m *mockUserRepository) UsernameExists(username string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) DirectSubordinateIDs(userID int64) ([]int64, error) {
	var ids []int64
	for _, u := range m.users {
		if u.SupervisorID != nil && *u.SupervisorID == userID {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (m *mockUserRepository) AssignGroups(userID int64, groupIDs []int64) error {
	return nil
}

type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func ptr(v int64) *int64 { return &v }

var _ = Describe("UserService", func() {
	var (
		repo    *mockUserRepository
		service *user.Service
		admin   *user.User
		someone *user.User
	)

	BeforeEach(func() {
		repo = newMockUserRepository()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = user.NewService(repo, plainHasher{}, logger)

		admin = repo.add(&user.User{Username: "admin", FirstName: "System", LastName: "Admin", IsActive: true, IsSuperuser: true})
		someone = repo.add(&user.User{Username: "myilmaz", FirstName: "Mehmet", LastName: "Yilmaz", IsActive: true})
	})

	Describe("username generation", func() {
		It("builds first-initial plus last name, folded to ascii", func() {
			Expect(user.BaseUsername("Ayşe", "Demir")).To(Equal("ademir"))
			Expect(user.BaseUsername("Çağla", "Öztürk")).To(Equal("cozturk"))
			Expect(user.BaseUsername("", "")).To(Equal("user"))
		})

		It("suffixes on collision", func() {
			created, err := service.CreateUser(admin, user.CreateUserDTO{
				FirstName: "Murat",
				LastName:  "Yilmaz",
				Password:  "secret-password",
			})
			Expect(err).To(BeNil())
			Expect(created.Username).To(Equal("myilmaz2"))
		})
	})

	Describe("CreateUser", func() {
		It("requires an admin actor", func() {
			_, err := service.CreateUser(someone, user.CreateUserDTO{
				FirstName: "New",
				LastName:  "Person",
				Password:  "secret-password",
			})
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("rejects a short password", func() {
			_, err := service.CreateUser(admin, user.CreateUserDTO{
				FirstName: "New",
				LastName:  "Person",
				Password:  "short",
			})
			Expect(err).To(HaveOccurred())
		})

		It("creates an active account", func() {
			created, err := service.CreateUser(admin, user.CreateUserDTO{
				FirstName: "Deniz",
				LastName:  "Acar",
				Password:  "secret-password",
			})
			Expect(err).To(BeNil())
			Expect(created.IsActive).To(BeTrue())
			Expect(created.Username).To(Equal("dacar"))
		})
	})

	Describe("ChangeSupervisor", func() {
		It("rejects self-supervision", func() {
			_, err := service.ChangeSupervisor(admin, someone.ID, user.ChangeSupervisorDTO{SupervisorID: &someone.ID})
			Expect(err).To(Equal(internal.ErrSupervisorCycle))
		})

		It("rejects a cycle through the chain", func() {
			boss := repo.add(&user.User{Username: "boss", FirstName: "Big", LastName: "Boss", IsActive: true})
			repo.users[someone.ID].SupervisorID = &boss.ID

			// making the report supervise the boss closes the loop
			_, err := service.ChangeSupervisor(admin, boss.ID, user.ChangeSupervisorDTO{SupervisorID: &someone.ID})
			Expect(err).To(Equal(internal.ErrSupervisorCycle))
		})

		It("accepts a valid assignment and clears with nil", func() {
			boss := repo.add(&user.User{Username: "boss", FirstName: "Big", LastName: "Boss", IsActive: true})

			updated, err := service.ChangeSupervisor(admin, someone.ID, user.ChangeSupervisorDTO{SupervisorID: &boss.ID})
			Expect(err).To(BeNil())
			Expect(updated.SupervisorID).To(Equal(&boss.ID))

			updated, err = service.ChangeSupervisor(admin, someone.ID, user.ChangeSupervisorDTO{SupervisorID: nil})
			Expect(err).To(BeNil())
			Expect(updated.SupervisorID).To(BeNil())
		})

		It("rejects an unknown supervisor", func() {
			_, err := service.ChangeSupervisor(admin, someone.ID, user.ChangeSupervisorDTO{SupervisorID: ptr(4242)})
			Expect(err).To(Equal(internal.ErrUserNotFound))
		})
	})

	Describe("ApprovalChain", func() {
		It("walks upward and skips inactive supervisors", func() {
			lead := repo.add(&user.User{Username: "lead", FirstName: "Team", LastName: "Lead", IsActive: false})
			head := repo.add(&user.User{Username: "head", FirstName: "Dept", LastName: "Head", IsActive: true})

			repo.users[someone.ID].SupervisorID = &lead.ID
			repo.users[lead.ID].SupervisorID = &head.ID

			chain, err := service.ApprovalChain(someone.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(chain).To(HaveLen(1))
			Expect(chain[0].ID).To(Equal(head.ID))
		})

		It("returns an empty chain for the top of the hierarchy", func() {
			chain, err := service.ApprovalChain(admin.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(chain).To(BeEmpty())
		})
	})

	Describe("Subordinates", func() {
		It("collects transitive reports", func() {
			report := repo.add(&user.User{Username: "report", FirstName: "Direct", LastName: "Report", IsActive: true, SupervisorID: &someone.ID})
			repo.add(&user.User{Username: "deep", FirstName: "Deep", LastName: "Report", IsActive: true, SupervisorID: &report.ID})

			subs, err := service.Subordinates(someone, someone.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(subs).To(HaveLen(2))
		})

		It("survives a corrupt cyclic hierarchy", func() {
			a := repo.add(&user.User{Username: "a", FirstName: "A", LastName: "A", IsActive: true})
			b := repo.add(&user.User{Username: "b", FirstName: "B", LastName: "B", IsActive: true, SupervisorID: &a.ID})
			repo.users[a.ID].SupervisorID = &b.ID

			subs, err := service.Subordinates(admin, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(subs).To(HaveLen(1))
		})

		It("denies other users' trees to non-admins", func() {
			_, err := service.Subordinates(someone, admin.ID)
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("DeactivateUser", func() {
		It("refuses to deactivate the actor's own account", func() {
			err := service.DeactivateUser(admin, admin.ID)
			Expect(err).To(HaveOccurred())
		})

		It("soft-deletes someone else", func() {
			Expect(service.DeactivateUser(admin, someone.ID)).To(Succeed())
			got, err := repo.GetByID(someone.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeFalse())
		})
	})
})
