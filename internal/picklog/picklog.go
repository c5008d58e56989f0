// Package picklog writes one plain-text audit file per finished pick request,
// the paper trail warehouse staff file with the physical order.
package picklog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pickhub/internal/domain"
)

type Writer struct{ Dir string }

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{Dir: dir}, nil
}

// Write renders the completion log for req and returns the file path.
// Filenames embed the request name and submit time: pick_<name>_<ts>.log.
func (w *Writer) Write(req *domain.PickRequest, pickedBy string) (string, error) {
	ts := time.Now().UTC()
	name := fmt.Sprintf("pick_%s_%s.log", req.Name, ts.Format("2006-01-02_15-04-05"))
	path := filepath.Join(w.Dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "PICK REQUEST: %s\n", req.Name)
	fmt.Fprintf(&b, "STATUS: %s\n", req.Status)
	fmt.Fprintf(&b, "PRIORITY: %s\n", req.Priority)
	fmt.Fprintf(&b, "REQUESTED BY: %s\n", req.CreatedBy)
	fmt.Fprintf(&b, "PICKED BY: %s\n", pickedBy)
	fmt.Fprintf(&b, "SUBMITTED: %s\n", ts.Format(time.RFC3339))
	fmt.Fprintf(&b, "PROGRESS: %d/%d items, %d/%d units (%.1f%%)\n",
		req.PickedItems(), len(req.Items), req.TotalPicked(), req.TotalRequested(), req.CompletionRate())
	if req.Notes != "" {
		fmt.Fprintf(&b, "NOTES: %s\n", req.Notes)
	}
	b.WriteString("\nITEMS:\n")
	for _, it := range req.Items {
		mark := " "
		if it.Complete() {
			mark = "x"
		}
		fmt.Fprintf(&b, "  [%s] %-14s %-40s picked %d of %d",
			mark, it.UPC, it.ProductName, it.PickedQty, it.RequestedQty)
		if !it.Complete() {
			fmt.Fprintf(&b, "  (short %d)", it.Remaining())
		}
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
