package canvas

import (
	"context"
	"strings"
)

// AccountDirectory is a point-in-time snapshot of the sub-account tree.
// It is loaded explicitly (once per batch run or sync) and passed to the
// components that resolve schools to sub-accounts, rather than memoized
// process-wide.
type AccountDirectory struct {
	accounts []Account
}

// LoadAccountDirectory fetches the full recursive sub-account list under the
// root account and returns it as a snapshot.
func LoadAccountDirectory(ctx context.Context, api API, rootAccountID int64) (*AccountDirectory, error) {
	accounts, err := api.ListSubAccounts(ctx, rootAccountID, true)
	if err != nil {
		return nil, err
	}
	return &AccountDirectory{accounts: accounts}, nil
}

// NewAccountDirectory builds a snapshot from an already-fetched account list.
func NewAccountDirectory(accounts []Account) *AccountDirectory {
	return &AccountDirectory{accounts: accounts}
}

// FindForSchool returns the id of the first sub-account whose name occurs in
// the school's LMS display name.
func (d *AccountDirectory) FindForSchool(schoolName string) (int64, bool) {
	for _, account := range d.accounts {
		if account.Name != "" && strings.Contains(schoolName, account.Name) {
			return account.ID, true
		}
	}
	return 0, false
}

// Len returns the number of accounts in the snapshot.
func (d *AccountDirectory) Len() int {
	return len(d.accounts)
}
