package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalProviderRoundTrip(t *testing.T) {
	base := t.TempDir()
	p := NewLocalProvider(base)

	w, errChan := p.StreamToFile(context.Background(), "exports/job1.csv")
	require.NotNil(t, w)

	_, err := io.WriteString(w, "id,name\n1,Ada\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, <-errChan)

	r, err := p.OpenFile(context.Background(), "exports/job1.csv")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "id,name\n1,Ada\n", string(data))
}

func TestLocalProviderNoPartialFiles(t *testing.T) {
	base := t.TempDir()
	p := NewLocalProvider(base)

	w, _ := p.StreamToFile(context.Background(), "job2.csv")
	_, err := io.WriteString(w, "partial")
	require.NoError(t, err)

	// Until Close, the final key must not exist.
	_, err = os.Stat(filepath.Join(base, "job2.csv"))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, w.Close())
	_, err = os.Stat(filepath.Join(base, "job2.csv"))
	require.NoError(t, err)
}

func TestLocalProviderDownloadURL(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	url := p.GetDownloadURL("exports/a.csv")
	require.True(t, strings.HasPrefix(url, "file://"))
	require.True(t, strings.HasSuffix(url, filepath.Join("exports", "a.csv")))
}
