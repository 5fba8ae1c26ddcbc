// Package contactsync keeps a remote phone directory's external contacts in
// step with an authoritative roster file.
//
// Each run refreshes a local mirror of the directory, loads the roster into a
// desired set, plans the creates, updates and deletes that make the directory
// match, and applies them one at a time. A failed action never stops the run:
// it is recorded in the run report and, because the mirror only changes after
// the directory accepts a change, the next run plans it again.
//
// Example usage:
//
//	provider := auth.NewProvider(creds)
//	dir := directory.New(constants.DefaultDirectoryURL, provider)
//
//	s, err := contactsync.New(provider, dir, mirror.NewMemory(), rosterfile.NewOS("/mnt/share/contacts.csv"),
//	    contactsync.WithNotifier(notify.NewSMTP(smtpCfg)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s.OnContactCreated(func(c contacts.Contact) {
//	    log.Printf("created %s", c.Label())
//	})
//
//	r, err := s.Run(ctx)
//	fmt.Println(r.Summary())
package contactsync

import (
	"context"

	"github.com/agentstation/contactsync/internal/auth"
	"github.com/agentstation/contactsync/pkg/mirror"
	"github.com/agentstation/contactsync/pkg/reconcile"
	"github.com/agentstation/contactsync/pkg/report"
)

// CredentialProvider yields an access credential for the directory.
//
// The engine acquires a credential once before the refresh so a bad
// configuration fails the run early. It does not hand the token to the
// Directory: the Directory authorizes its own calls and should be built from
// the same provider, whose cache then serves it the token already fetched.
type CredentialProvider interface {
	AcquireCredential(ctx context.Context) (auth.Token, error)
}

// Directory lists and mutates the remote directory.
type Directory interface {
	mirror.Lister
	reconcile.Directory
}

// RosterSource transfers the raw roster file.
type RosterSource interface {
	FetchRoster(ctx context.Context) ([]byte, error)
}

// Notifier delivers a finished report.
type Notifier interface {
	Notify(ctx context.Context, r *report.Report) error
}
