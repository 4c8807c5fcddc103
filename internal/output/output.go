// Package output writes the artifacts of a run to the filesystem.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ddfeed/internal/components/telemetry"
	"ddfeed/internal/document"
	"ddfeed/internal/extract"

	"github.com/google/uuid"
)

const report_output_write = "output.write"

// Directory saves documents and record lists as indented `<name>.json` files.
type Directory struct {
	directory string
}

func NewDirectory(dir string) (Directory, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return Directory{}, err
	}
	return Directory{directory: dir}, nil
}

func (d Directory) Path(name string) string {
	return filepath.Join(d.directory, name+".json")
}

func (d Directory) SaveDocument(name string, doc document.Node) error {
	serialized, err := document.MarshalIndent(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return os.WriteFile(d.Path(name), serialized, 0644)
}

func (d Directory) SaveRecords(name string, records []extract.StoreRecord) error {
	if records == nil {
		records = []extract.StoreRecord{}
	}
	serialized, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return os.WriteFile(d.Path(name), serialized, 0644)
}

// HttpDump writes every http exchange of a client into its own file.
type HttpDump struct {
	directory string
	tel       telemetry.API
}

// NewHttpDump writes the exchanges of a run into a new subdirectory of dir,
// named by a fresh uuid. Existing contents of dir are left alone.
func NewHttpDump(dir string, tel telemetry.API) (HttpDump, error) {
	runDir := filepath.Join(dir, uuid.NewString())
	err := os.MkdirAll(runDir, 0777)
	if err != nil {
		return HttpDump{}, err
	}
	return HttpDump{
		directory: runDir,
		tel:       telemetry.NewScopedAPI("output", tel),
	}, nil
}

// Dir is the directory the exchanges are written to.
func (o HttpDump) Dir() string {
	return o.directory
}

func (o HttpDump) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		o.tel.ReportWarning(report_output_write, fmt.Errorf("write message %s: %w", id, err))
	}
}
