package usecase

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/itchyny/json2yaml"
	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/tidwall/sjson"
)

// Dump formats accepted by DumpSnapshot.
const (
	DumpJSON = "json"
	DumpYAML = "yaml"
)

// DumpSnapshot writes the snapshot behind a card, tagged with the mode and
// card title, as indented JSON or as YAML.
func DumpSnapshot(w io.Writer, snapshot *domain.StatsSnapshot, mode domain.Mode, format string) error {
	if snapshot == nil {
		return fmt.Errorf("nothing to dump")
	}
	data, err := sonic.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	data, err = sjson.SetBytes(data, "mode", mode.String())
	if err != nil {
		return err
	}
	data, err = sjson.SetBytes(data, "title", mode.Title())
	if err != nil {
		return err
	}

	switch format {
	case DumpJSON:
		_, err = w.Write(append(data, '\n'))
		return err
	case DumpYAML:
		return json2yaml.Convert(w, bytes.NewReader(data))
	default:
		return fmt.Errorf("unknown dump format %q, want %s or %s", format, DumpJSON, DumpYAML)
	}
}
