package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/procurement-management/internal/authz"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"approval_history", "procurement_documents", "requests",
				"user_permissions", "group_permissions", "user_groups",
				"division_worksites", "divisions", "groups",
				"audit_logs", "users", "worksites", "permissions",
			} {
				if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		permissions := []struct {
			Codename string
			Desc     string
		}{
			{"admin", "full administrator"},
			{"approve_requests", "Can approve purchase requests"},
			{"reject_requests", "Can reject purchase requests"},
			{"can_purchase", "Can work the purchasing queue"},
			{"view_all_requests", "Can view every request"},
			{"manage_users", "Can manage user accounts"},
		}
		for _, p := range permissions {
			if !authz.Known(authz.Permission(p.Codename)) {
				log.Fatalf("unknown permission codename in seed data: %s", p.Codename)
			}
			var pid int64
			row := gdb.Raw("SELECT id FROM permissions WHERE codename = ?", p.Codename).Row()
			if err := row.Scan(&pid); err != nil {
				if err := gdb.Exec("INSERT INTO permissions (codename, description, created_at) VALUES (?, ?, now())", p.Codename, p.Desc).Error; err != nil {
					log.Fatalf("failed to insert permission %s: %v", p.Codename, err)
				}
			}
		}

		var worksiteID int64
		if err := gdb.Raw("SELECT id FROM worksites WHERE city = ?", "Istanbul").Row().Scan(&worksiteID); err != nil {
			if err := gdb.Exec("INSERT INTO worksites (address, city, country, created_at, updated_at) VALUES (?, ?, ?, now(), now())",
				"Buyukdere Cd. 1", "Istanbul", "Turkey").Error; err != nil {
				log.Fatalf("failed to insert worksite: %v", err)
			}
			if err := gdb.Raw("SELECT id FROM worksites WHERE city = ?", "Istanbul").Row().Scan(&worksiteID); err != nil {
				log.Fatalf("failed to lookup worksite id: %v", err)
			}
		}

		adminID := seedUser(gdb, "admin", "System", "Admin", string(hash), true, nil, &worksiteID)
		supervisorID := seedUser(gdb, "ademir", "Ayse", "Demir", string(hash), false, nil, &worksiteID)
		seedUser(gdb, "myilmaz", "Mehmet", "Yilmaz", string(hash), false, &supervisorID, &worksiteID)
		purchasingID := seedUser(gdb, "ekaya", "Emre", "Kaya", string(hash), false, nil, &worksiteID)

		seedGroup(gdb, "Approvers", []string{"approve_requests", "reject_requests", "view_all_requests"}, supervisorID)
		seedGroup(gdb, "Purchasing", []string{"can_purchase", "view_all_requests"}, purchasingID)

		fmt.Println("Seeded admin user id:", adminID)
		fmt.Println("Default password for all seeded users:", password)
	},
}

func seedUser(gdb *gorm.DB, username, firstName, lastName, hash string, superuser bool, supervisorID, worksiteID *int64) int64 {
	var id int64
	if err := gdb.Raw("SELECT id FROM users WHERE username = ?", username).Row().Scan(&id); err == nil {
		return id
	}

	err := gdb.Exec(`INSERT INTO users (username, first_name, last_name, password_hash, is_active, is_superuser, supervisor_id, worksite_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, true, ?, ?, ?, now(), now())`,
		username, firstName, lastName, hash, superuser, supervisorID, worksiteID).Error
	if err != nil {
		log.Fatalf("failed to insert user %s: %v", username, err)
	}

	if err := gdb.Raw("SELECT id FROM users WHERE username = ?", username).Row().Scan(&id); err != nil {
		log.Fatalf("failed to lookup user id for %s: %v", username, err)
	}
	fmt.Println("Seeded user:", username)
	return id
}

func seedGroup(gdb *gorm.DB, name string, permissionCodenames []string, memberIDs ...int64) {
	var gid int64
	if err := gdb.Raw("SELECT id FROM groups WHERE name = ?", name).Row().Scan(&gid); err != nil {
		if err := gdb.Exec("INSERT INTO groups (name, created_at) VALUES (?, now())", name).Error; err != nil {
			log.Fatalf("failed to insert group %s: %v", name, err)
		}
		if err := gdb.Raw("SELECT id FROM groups WHERE name = ?", name).Row().Scan(&gid); err != nil {
			log.Fatalf("failed to lookup group id for %s: %v", name, err)
		}
	}

	for _, codename := range permissionCodenames {
		var pid int64
		if err := gdb.Raw("SELECT id FROM permissions WHERE codename = ?", codename).Row().Scan(&pid); err != nil {
			log.Fatalf("permission not found %s: %v", codename, err)
		}
		var exists int
		if err := gdb.Raw("SELECT 1 FROM group_permissions WHERE group_id = ? AND permission_id = ?", gid, pid).Row().Scan(&exists); err == nil {
			continue
		}
		if err := gdb.Exec("INSERT INTO group_permissions (group_id, permission_id) VALUES (?, ?)", gid, pid).Error; err != nil {
			log.Fatalf("failed to grant %s to group %s: %v", codename, name, err)
		}
	}

	for _, uid := range memberIDs {
		var exists int
		if err := gdb.Raw("SELECT 1 FROM user_groups WHERE user_id = ? AND group_id = ?", uid, gid).Row().Scan(&exists); err == nil {
			continue
		}
		if err := gdb.Exec("INSERT INTO user_groups (user_id, group_id) VALUES (?, ?)", uid, gid).Error; err != nil {
			log.Fatalf("failed to add member %d to group %s: %v", uid, name, err)
		}
	}
	fmt.Println("Seeded group:", name)
}
