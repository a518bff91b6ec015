package awscreds

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeCredentialsFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "credentials")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestSharedConfigFileProviderCachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentialsFile(t, dir, "[default]\naws_access_key_id = AKIAONE\naws_secret_access_key = secret1\n")

	p := NewSharedConfigFile(path, "default")
	cred, err := p.GetCredential(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "AKIAONE", cred.AccessKeyID)

	// Rewriting the file without invalidating the cache must not change
	// what GetCredential returns.
	writeCredentialsFile(t, dir, "[default]\naws_access_key_id = AKIATWO\naws_secret_access_key = secret2\n")
	cred, err = p.GetCredential(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "AKIAONE", cred.AccessKeyID)
}

func TestSharedConfigFileProviderWatchInvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentialsFile(t, dir, "[default]\naws_access_key_id = AKIAONE\naws_secret_access_key = secret1\n")

	p := NewSharedConfigFile(path, "default")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.WatchForChanges(ctx, nil))
	defer p.Shutdown(context.Background())

	cred, err := p.GetCredential(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "AKIAONE", cred.AccessKeyID)

	writeCredentialsFile(t, dir, "[default]\naws_access_key_id = AKIATWO\naws_secret_access_key = secret2\n")

	require.Eventually(t, func() bool {
		cred, err := p.GetCredential(context.Background(), nil)
		return err == nil && cred.AccessKeyID == "AKIATWO"
	}, 2*time.Second, 10*time.Millisecond)
}
