package headless

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pressmill/pressmill/internal/pool"
)

func TestNewRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestNewDefaultsTimeout(t *testing.T) {
	t.Parallel()

	r, err := New(Config{UserAgent: "pressmill-test/0.1"}, pool.New(1))
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 60*time.Second, r.cfg.NavigationTimeout)
}
