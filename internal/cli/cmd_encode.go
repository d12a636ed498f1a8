package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/codec"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

func newEncodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a JSON record as a QR payload",
		Long: `Encode JSON read from stdin as a QR payload.

A JSON object is encoded as an objective (one robot) QR. A JSON array of
objects is encoded as a subjective QR holding one alliance's teams.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			out, err := encodeJSON(reg, data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	return cmd
}

func encodeJSON(reg *schema.Registry, data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	enc := codec.NewEncoder(reg)
	if len(data) == 0 || data[0] != '[' {
		r, err := scouting.RecordFromJSON(reg, data)
		if err != nil {
			return "", err
		}
		return enc.EncodeObjective(r)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return "", fmt.Errorf("failed to parse records: %w", err)
	}
	records := make([]scouting.Record, 0, len(items))
	for i, item := range items {
		r, err := scouting.RecordFromJSON(reg, item)
		if err != nil {
			return "", fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, r)
	}
	return enc.EncodeSubjective(records)
}
