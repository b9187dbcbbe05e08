package captcha

import (
	"fmt"
	"sort"
	"time"

	"github.com/PaulFidika/auditstore/clearance"
)

// Category is a semantic class of grid tiles. Clients map Tag to an icon.
type Category struct {
	Tag   string
	Label string
}

// DefaultCatalog is the fixed set of categories a target is drawn from.
var DefaultCatalog = []Category{
	{Tag: "shield", Label: "Shields"},
	{Tag: "lock", Label: "Padlocks"},
	{Tag: "key", Label: "Keys"},
	{Tag: "bug", Label: "Bugs"},
	{Tag: "server", Label: "Servers"},
	{Tag: "cloud", Label: "Clouds"},
	{Tag: "fingerprint", Label: "Fingerprints"},
	{Tag: "document", Label: "Documents"},
	{Tag: "firewall", Label: "Firewalls"},
	{Tag: "certificate", Label: "Certificates"},
}

// Challenge is a single-use grid puzzle. ExpectedIndices never leaves the server.
type Challenge struct {
	ID              string         `json:"id"`
	Flow            clearance.Flow `json:"flow"`
	TargetCategory  string         `json:"target_category"`
	Options         []string       `json:"options"`
	ExpectedIndices []int          `json:"expected_indices"`
	IssuedAt        time.Time      `json:"issued_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
}

// View is what the client is allowed to see.
type View struct {
	ChallengeID    string   `json:"challengeId"`
	TargetCategory string   `json:"targetCategory"`
	TargetLabel    string   `json:"targetLabel"`
	Grid           []string `json:"grid"`
}

// Expired reports whether the challenge can no longer be graded at now.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Validate checks the structural invariants: at least one matching and one
// non-matching option, and ExpectedIndices naming exactly the matching ones.
func (c Challenge) Validate() error {
	if c.TargetCategory == "" {
		return fmt.Errorf("%w: missing target category", ErrInvalidInput)
	}
	var want []int
	for i, opt := range c.Options {
		if opt == c.TargetCategory {
			want = append(want, i)
		}
	}
	if len(want) == 0 {
		return fmt.Errorf("%w: no option matches target", ErrInvalidInput)
	}
	if len(want) == len(c.Options) {
		return fmt.Errorf("%w: every option matches target", ErrInvalidInput)
	}
	if !sameSet(want, c.ExpectedIndices) {
		return fmt.Errorf("%w: expected indices disagree with options", ErrInvalidInput)
	}
	return nil
}

// Matches reports exact set equality between submitted and the expected answer.
// Partial and over-complete selections both fail.
func (c Challenge) Matches(submitted []int) bool {
	return sameSet(c.ExpectedIndices, submitted)
}

// View projects the challenge for the client, resolving the target label from catalog.
func (c Challenge) View(catalog []Category) View {
	label := c.TargetCategory
	for _, cat := range catalog {
		if cat.Tag == c.TargetCategory {
			label = cat.Label
			break
		}
	}
	grid := make([]string, len(c.Options))
	copy(grid, c.Options)
	return View{
		ChallengeID:    c.ID,
		TargetCategory: c.TargetCategory,
		TargetLabel:    label,
		Grid:           grid,
	}
}

func sameSet(a, b []int) bool {
	as := dedupeSorted(a)
	bs := dedupeSorted(b)
	// A duplicated index in a submission is a malformed guess, not a shortcut.
	if len(bs) != len(b) || len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func dedupeSorted(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	j := 0
	for i := range out {
		if i == 0 || out[i] != out[i-1] {
			out[j] = out[i]
			j++
		}
	}
	return out[:j]
}
