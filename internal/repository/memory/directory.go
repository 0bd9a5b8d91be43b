// internal/repository/memory/directory.go
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"workdesk-service/internal/domain/auth"
	xerrors "workdesk-service/internal/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// Directory is an in-process user directory for dev mode and tests.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]*auth.Account
}

func NewDirectory() *Directory {
	return &Directory{accounts: make(map[string]*auth.Account)}
}

// NewSeededDirectory returns a directory preloaded with the console's
// default workforce accounts.
func NewSeededDirectory() (*Directory, error) {
	d := NewDirectory()

	adminRole := auth.Role{
		ID:          "admin",
		Name:        "Administrator",
		Level:       100,
		Permissions: []string{auth.Wildcard},
	}
	supervisorRole := auth.Role{
		ID:     "supervisor",
		Name:   "Operations Supervisor",
		Level:  50,
		Permissions: []string{
			"projects.*",
			"shifts.*",
			"employees.read",
			"reports.read",
		},
	}
	employeeRole := auth.Role{
		ID:     "employee",
		Name:   "Employee",
		Level:  10,
		Permissions: []string{
			"shifts.read",
			"timesheets.create",
			"timesheets.read",
		},
	}

	seeds := []struct {
		username      string
		password      string
		displayName   string
		displayNameAr string
		role          auth.Role
		permissions   []auth.Permission
		active        bool
	}{
		{"admin", "admin123", "System Administrator", "مدير النظام", adminRole, nil, true},
		{"ops.supervisor", "super123", "Operations Supervisor", "مشرف العمليات", supervisorRole,
			[]auth.Permission{{Resource: "announcements", Action: auth.ActionManage}}, true},
		{"jdoe", "work1234", "John Doe", "", employeeRole, nil, true},
		{"former.staff", "gone1234", "Former Staff", "", employeeRole, nil, false},
	}

	for i, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash seed password: %w", err)
		}
		now := time.Now()
		d.Put(&auth.Account{
			User: auth.User{
				ID:            fmt.Sprintf("u-%03d", i+1),
				Username:      seed.username,
				DisplayName:   seed.displayName,
				DisplayNameAr: seed.displayNameAr,
				Role:          seed.role,
				Permissions:   seed.permissions,
				IsActive:      seed.active,
				CreatedAt:     now,
				UpdatedAt:     now,
			},
			PasswordHash: string(hash),
		})
	}
	return d, nil
}

// Put registers or replaces an account.
func (d *Directory) Put(account *auth.Account) {
	d.mu.Lock()
	d.accounts[strings.ToLower(account.User.Username)] = account
	d.mu.Unlock()
}

func (d *Directory) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	d.mu.RLock()
	account, ok := d.accounts[strings.ToLower(username)]
	d.mu.RUnlock()
	if !ok {
		return nil, xerrors.ErrNotFound
	}

	// Return a copy so session snapshots cannot alias directory state.
	clone := *account
	return &clone, nil
}
