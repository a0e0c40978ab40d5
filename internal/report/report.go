// Package report renders a sweep plan.
//
// The text form is what cache maintenance scripts consume: one narinfo
// key per deletable object, then one line per deletable archive URL, with
// a human summary on the diagnostic stream. The structured form is a
// PlanResult for JSON output.
package report

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/cachegc/internal/sweep"
)

// NarinfoSuffix is appended to canonical identifiers in key mode.
const NarinfoSuffix = ".narinfo"

// Options controls text rendering.
type Options struct {
	// BareKeys prints canonical identifiers without the narinfo suffix.
	BareKeys bool
}

// WriteDeletions writes the deletable objects, then the deletable
// origins, one per line.
func WriteDeletions(w io.Writer, p *sweep.Plan, opts Options) error {
	bw := bufio.NewWriter(w)
	for _, id := range p.DeleteIDs() {
		bw.WriteString(id)
		if !opts.BareKeys {
			bw.WriteString(NarinfoSuffix)
		}
		bw.WriteByte('\n')
	}
	for _, url := range p.DeletableOriginURLs() {
		bw.WriteString(url)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

var printer = message.NewPrinter(language.English)

// Summary returns the one-line human summary of a plan.
func Summary(p *sweep.Plan) string {
	return printer.Sprintf("Will delete %d/%d paths and %d/%d nar files, totalling %s.",
		p.DeleteCount(), p.TotalObjects(),
		len(p.DeletableOrigins), p.TotalOrigins(),
		humanize.IBytes(uint64(p.ReclaimableBytes)),
	)
}

// PlanResult is the structured form of a plan.
type PlanResult struct {
	Objects          int      `json:"objects"`
	Roots            int      `json:"roots"`
	DeletableObjects int      `json:"deletable_objects"`
	Origins          int      `json:"origins"`
	DeletableOrigins int      `json:"deletable_origins"`
	ReclaimableBytes int64    `json:"reclaimable_bytes"`
	Reclaimable      string   `json:"reclaimable"`
	Delete           []string `json:"delete"`
	DeleteOrigins    []string `json:"delete_origins"`
}

// NewPlanResult flattens p. Lists are sorted and never nil.
func NewPlanResult(p *sweep.Plan) PlanResult {
	return PlanResult{
		Objects:          p.TotalObjects(),
		Roots:            p.RootCount(),
		DeletableObjects: p.DeleteCount(),
		Origins:          p.TotalOrigins(),
		DeletableOrigins: len(p.DeletableOrigins),
		ReclaimableBytes: p.ReclaimableBytes,
		Reclaimable:      humanize.IBytes(uint64(p.ReclaimableBytes)),
		Delete:           p.DeleteIDs(),
		DeleteOrigins:    p.DeletableOriginURLs(),
	}
}

// MarshalIndented returns the result as indented JSON with a trailing
// newline.
func (r PlanResult) MarshalIndented() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
