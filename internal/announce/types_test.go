package announce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdentityIgnoresScrapedAt(t *testing.T) {
	t.Parallel()

	a := Record{Title: "t", Description: "d", Time: "18 August, 2026", ScrapedAt: time.Now()}
	b := a
	b.ScrapedAt = b.ScrapedAt.Add(time.Hour)
	require.Equal(t, a.Identity(), b.Identity())

	c := a
	c.Time = "19 August, 2026"
	require.NotEqual(t, a.Identity(), c.Identity())
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "user@example.org", NormalizeEmail("  User@Example.ORG "))
	require.Equal(t, "", NormalizeEmail("   "))
}
