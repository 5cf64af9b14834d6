package export_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopsolar/backoffice/internal/export"
	"github.com/coopsolar/backoffice/internal/invoice"
	"github.com/coopsolar/backoffice/internal/status"
)

type listerFunc func(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error)

func (f listerFunc) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	return f(ctx, filter)
}

func newInvoice(url string, amount string) *invoice.Invoice {
	return &invoice.Invoice{
		ID:             uuid.MustParse("5b1f0c9e-7d35-4a51-9a77-0d6f2f0c1e11"),
		MemberID:       uuid.MustParse("0e4f6c2a-1111-4a51-9a77-0d6f2f0c1e22"),
		ReferenceMonth: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.RequireFromString(amount),
		DocumentURL:    url,
		Status:         status.NewTracker(invoice.StatusSent),
	}
}

func TestService_Export(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bucket-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/named.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="fatura cooperado.pdf"`)
			w.Write([]byte("%PDF-named"))
		case "/anon":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-anon"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	named := newInvoice(ts.URL+"/named.pdf", "312.45")
	anon := newInvoice(ts.URL+"/anon", "100")
	missing := newInvoice("", "50")

	svc := export.NewService(listerFunc(func(context.Context, invoice.ListFilter) ([]*invoice.Invoice, error) {
		return []*invoice.Invoice{named, anon, missing}, nil
	}), hostOf(t, ts.URL), "bucket-token")

	dir := t.TempDir()

	items, err := svc.Export(context.Background(), invoice.ListFilter{}, dir)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Same(t, named, items[0].Invoice)
	assert.Equal(t, "5b1f0c9e_fatura_cooperado.pdf", filepath.Base(items[0].FilePath))

	content, err := os.ReadFile(items[0].FilePath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-named", string(content))

	assert.Equal(t, "fatura_202502_5b1f0c9e.pdf", filepath.Base(items[1].FilePath))
	assert.Empty(t, items[2].FilePath)
}

func TestService_Export_DownloadFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	svc := export.NewService(listerFunc(func(context.Context, invoice.ListFilter) ([]*invoice.Invoice, error) {
		return []*invoice.Invoice{newInvoice(ts.URL+"/gone.pdf", "10")}, nil
	}), "", "")

	_, err := svc.Export(context.Background(), invoice.ListFilter{}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code 404")
}

func TestService_Export_TokenOnlyForStorageHost(t *testing.T) {
	var (
		mu      sync.Mutex
		gotAuth []string
	)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		mu.Unlock()

		w.Write([]byte("%PDF"))
	}))
	defer ts.Close()

	lister := listerFunc(func(context.Context, invoice.ListFilter) ([]*invoice.Invoice, error) {
		return []*invoice.Invoice{newInvoice(ts.URL+"/a.pdf", "10")}, nil
	})

	_, err := export.NewService(lister, "storage.coop", "bucket-token").
		Export(context.Background(), invoice.ListFilter{}, t.TempDir())
	require.NoError(t, err)

	_, err = export.NewService(lister, hostOf(t, ts.URL), "bucket-token").
		Export(context.Background(), invoice.ListFilter{}, t.TempDir())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{"", "Bearer bucket-token"}, gotAuth)
}

func TestService_Export_SameFilenameKeepsBoth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="fatura.pdf"`)
		w.Write([]byte(r.URL.Path))
	}))
	defer ts.Close()

	first := newInvoice(ts.URL+"/first", "10")
	second := newInvoice(ts.URL+"/second", "20")

	svc := export.NewService(listerFunc(func(context.Context, invoice.ListFilter) ([]*invoice.Invoice, error) {
		return []*invoice.Invoice{first, second}, nil
	}), "", "")

	items, err := svc.Export(context.Background(), invoice.ListFilter{}, t.TempDir())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "5b1f0c9e_fatura.pdf", filepath.Base(items[0].FilePath))
	assert.Equal(t, "5b1f0c9e_fatura_2.pdf", filepath.Base(items[1].FilePath))

	for _, want := range []struct{ path, body string }{
		{items[0].FilePath, "/first"},
		{items[1].FilePath, "/second"},
	} {
		content, err := os.ReadFile(want.path)
		require.NoError(t, err)
		assert.Equal(t, want.body, string(content))
	}
}

func hostOf(t *testing.T, raw string) string {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u.Host
}

func TestSummary(t *testing.T) {
	items := []export.Item{
		{Invoice: newInvoice("x", "1234.56"), FilePath: "/tmp/fatura_202502.pdf"},
		{Invoice: newInvoice("", "15.44")},
	}

	body := export.Summary(items)

	assert.Contains(t, body, "* 02/2025 | 0e4f6c2a-1111-4a51-9a77-0d6f2f0c1e22 | enviada | R$ 1.234,56 | fatura_202502.pdf\n")
	assert.Contains(t, body, "| R$ 15,44 | sem documento\n")
	assert.Contains(t, body, "Total: 2 faturas | R$ 1.250,00\n")
}

func TestWriteZip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, export.SummaryFile), []byte("resumo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, export.WriteZip(&buf, dir))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make(map[string]string)

	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)

		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()

		names[f.Name] = string(b)
	}

	assert.Equal(t, map[string]string{"a.pdf": "%PDF", export.SummaryFile: "resumo"}, names)
}
