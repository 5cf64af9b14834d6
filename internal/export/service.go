package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/invoice"
	"github.com/coopsolar/backoffice/internal/money"
)

// SummaryFile is the name of the summary written next to the documents.
const SummaryFile = "resumo.txt"

// Item is an exported invoice and the local path of its document, if any.
type Item struct {
	Invoice  *invoice.Invoice
	FilePath string
}

type Lister interface {
	List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error)
}

// Service downloads invoice documents from the storage bucket.
type Service struct {
	invoices    Lister
	client      *http.Client
	storageHost string
	token       string
}

// NewService builds an exporter. token is only sent to storageHost.
func NewService(invoices Lister, storageHost, token string) *Service {
	return &Service{
		invoices:    invoices,
		client:      &http.Client{Timeout: 30 * time.Second},
		storageHost: storageHost,
		token:       token,
	}
}

// Export downloads the documents of the invoices matching filter into dir.
// Invoices without a document are returned with an empty FilePath.
func (s *Service) Export(ctx context.Context, filter invoice.ListFilter, dir string) ([]Item, error) {
	invoices, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	items := make([]Item, 0, len(invoices))
	taken := make(map[string]bool, len(invoices))

	for _, inv := range invoices {
		item := Item{Invoice: inv}

		if inv.DocumentURL != "" {
			path, err := s.download(ctx, inv, dir, taken)
			if err != nil {
				return nil, fmt.Errorf("downloading document for invoice %s: %w", inv.ID, err)
			}

			item.FilePath = path
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *Service) download(ctx context.Context, inv *invoice.Invoice, dir string, taken map[string]bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inv.DocumentURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	if s.token != "" && s.storageHost != "" && strings.EqualFold(req.URL.Host, s.storageHost) {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for url %s", resp.StatusCode, inv.DocumentURL)
	}

	path := filepath.Join(dir, uniqueName(filename(resp, inv), taken))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return path, nil
}

// filename prefers the server's Content-Disposition name, prefixed with the
// invoice id, and otherwise builds fatura_YYYYMM_<id prefix>.pdf.
func filename(resp *http.Response, inv *invoice.Invoice) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			name := strings.ReplaceAll(filepath.Base(params["filename"]), " ", "_")
			return inv.ID.String()[:8] + "_" + name
		}
	}

	ext := ".pdf"
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/pdf") {
		if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
			ext = exts[0]
		}
	}

	return fmt.Sprintf("fatura_%s_%s%s", inv.ReferenceMonth.Format("200601"), inv.ID.String()[:8], ext)
}

// uniqueName suffixes name with _2, _3, ... until no earlier download of the
// same export used it.
func uniqueName(name string, taken map[string]bool) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 2; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}

	taken[candidate] = true

	return candidate
}

// Summary lists the exported invoices one per line followed by the total.
func Summary(items []Item) string {
	var (
		sb    strings.Builder
		total decimal.Decimal
	)

	for _, item := range items {
		inv := item.Invoice

		file := "sem documento"
		if item.FilePath != "" {
			file = filepath.Base(item.FilePath)
		}

		fmt.Fprintf(&sb, "* %s | %s | %s | %s | %s\n",
			inv.ReferenceMonth.Format("01/2006"),
			inv.MemberID,
			inv.Status.Current(),
			money.FormatBRL(inv.Amount),
			file,
		)

		total = total.Add(inv.Amount)
	}

	fmt.Fprintf(&sb, "\nTotal: %d faturas | %s\n", len(items), money.FormatBRL(total))

	return sb.String()
}

// WriteZip writes every regular file under dir into a zip archive on w.
func WriteZip(w io.Writer, dir string) error {
	zw := zip.NewWriter(w)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		zf, err := zw.Create(rel)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(zf, f)

		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("writing zip: %w", err)
	}

	return zw.Close()
}
