package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"gtfscache/internal/encode"
)

type inspectRecord struct {
	TripID        string `msgpack:"trip_id"`
	StopID        string `msgpack:"stop_id"`
	ArrivalTime   string `msgpack:"arrival_time"`
	DepartureTime string `msgpack:"departure_time"`
	StopSequence  int32  `msgpack:"stop_sequence"`
}

func newInspectCommand() *cobra.Command {
	var sample int

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a precache file and summarize its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			var root map[string]msgpack.RawMessage
			if err := msgpack.Unmarshal(data, &root); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			raw, ok := root[encode.EnvelopeKey]
			if !ok {
				return fmt.Errorf("%s: missing %q key", args[0], encode.EnvelopeKey)
			}
			var records []inspectRecord
			if err := msgpack.Unmarshal(raw, &records); err != nil {
				return fmt.Errorf("decode %s array: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s records, %s\n",
				filepath.Base(args[0]),
				humanize.Comma(int64(len(records))),
				humanize.IBytes(uint64(len(data))))

			if sample <= 0 || len(records) == 0 {
				return nil
			}
			if sample > len(records) {
				sample = len(records)
			}
			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"trip_id", "stop_id", "arrival", "departure", "seq"})
			for _, rec := range records[:sample] {
				tw.AppendRow(table.Row{rec.TripID, rec.StopID, rec.ArrivalTime, rec.DepartureTime, strconv.Itoa(int(rec.StopSequence))})
			}
			fmt.Fprintln(out, tw.Render())
			return nil
		},
	}

	cmd.Flags().IntVar(&sample, "sample", 5, "Number of records to display")
	return cmd
}
