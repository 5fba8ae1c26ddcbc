package mirror

import (
	"context"
	"fmt"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/contacts"
	"github.com/agentstation/contactsync/pkg/logging"
)

// Page is one page of the remote directory listing.
type Page struct {
	Contacts      []contacts.Contact
	NextPageToken string
	TotalRecords  int
}

// Lister pages through the remote directory.
type Lister interface {
	ListDirectory(ctx context.Context, pageToken string, pageSize int) (*Page, error)
}

// Stats summarizes a refresh.
type Stats struct {
	Pages        int
	Contacts     int
	TotalRecords int
	Duplicates   int
	Unkeyed      int
}

// RefreshOption configures Refresh.
type RefreshOption func(*refreshOptions)

type refreshOptions struct {
	pageSize int
}

// WithPageSize sets the number of contacts requested per page.
func WithPageSize(n int) RefreshOption {
	return func(o *refreshOptions) {
		if n > 0 && n <= constants.MaxPageSize {
			o.pageSize = n
		}
	}
}

// Refresh rebuilds m from the remote listing, following page tokens until the
// listing reports none. Progress is counted by the actual length of each page,
// which may differ from the requested size. Any page error aborts the refresh
// and leaves m exactly as it was.
func Refresh(ctx context.Context, l Lister, m Mirror, opts ...RefreshOption) (*Stats, error) {
	o := refreshOptions{pageSize: constants.DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.FromContext(ctx)
	stats := &Stats{}
	staged := make([]contacts.Contact, 0, o.pageSize)
	seen := make(map[string]struct{})
	tokens := make(map[string]struct{})
	token := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := l.ListDirectory(ctx, token, o.pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing directory page %d: %w", stats.Pages+1, err)
		}
		stats.Pages++
		stats.TotalRecords = page.TotalRecords

		for _, c := range page.Contacts {
			if c.ID == "" {
				stats.Unkeyed++
				logger.Warn().
					Str("directory_ref", c.DirectoryRef).
					Str("name", c.Name).
					Msg("Directory entry has no roster id, leaving it alone")
				continue
			}
			if _, dup := seen[c.ID]; dup {
				stats.Duplicates++
				logger.Warn().
					Str("contact_id", c.ID).
					Str("directory_ref", c.DirectoryRef).
					Msg("Directory holds more than one entry for id, keeping the first")
				continue
			}
			seen[c.ID] = struct{}{}
			staged = append(staged, c)
		}

		logger.Info().Msgf("Retrieved %d - %d of %d",
			stats.Contacts+1, stats.Contacts+len(page.Contacts), page.TotalRecords)
		stats.Contacts += len(page.Contacts)

		if page.NextPageToken == "" {
			break
		}
		if _, repeated := tokens[page.NextPageToken]; repeated {
			return nil, fmt.Errorf("directory listing repeated page token %q after %d pages", page.NextPageToken, stats.Pages)
		}
		tokens[page.NextPageToken] = struct{}{}
		token = page.NextPageToken
	}

	if err := m.Replace(staged); err != nil {
		return nil, fmt.Errorf("replacing mirror contents: %w", err)
	}

	return stats, nil
}
