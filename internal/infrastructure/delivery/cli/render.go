package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"vidgrab/internal/consts"
	"vidgrab/internal/entity"
	"vidgrab/pkg/calc"
	"vidgrab/pkg/maths"

	"gopkg.in/yaml.v2"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func checkOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output %q, want text, json or yaml", format)
	}
}

// FormatDuration renders seconds as "m:ss min".
func FormatDuration(seconds *int) string {
	if seconds == nil || *seconds < 0 {
		return consts.NotAvailable
	}

	return fmt.Sprintf("%d:%02d min", *seconds/60, *seconds%60)
}

func count(v *int64) string {
	if v == nil {
		return consts.NotAvailable
	}

	return strconv.FormatInt(*v, 10)
}

func orNA(s string) string {
	if s == "" {
		return consts.NotAvailable
	}

	return s
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case outputYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("write yaml: %w", err)
		}
	}

	return nil
}

func writeInfo(w io.Writer, format string, meta *entity.VideoMetadata) error {
	if format != outputText {
		return encode(w, format, meta)
	}

	thumb := consts.NotAvailable
	if len(meta.Thumbnail) > 0 {
		thumb = fmt.Sprintf("%d bytes", len(meta.Thumbnail))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, row := range [][2]string{
		{"Title", orNA(meta.Title)},
		{"Channel", orNA(meta.ChannelName)},
		{"Channel URL", orNA(meta.ChannelURL)},
		{"Views", count(meta.ViewCount)},
		{"Likes", count(meta.LikeCount)},
		{"Dislikes", count(meta.DislikeCount)},
		{"Comments", count(meta.CommentCount)},
		{"Duration", FormatDuration(meta.Duration)},
		{"Live status", orNA(string(meta.LiveStatus))},
		{"Age limit", strconv.Itoa(meta.AgeLimit)},
		{"Availability", orNA(meta.Availability)},
		{"Thumbnail", thumb},
		{"Description", orNA(meta.Description)},
	} {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write info: %w", err)
	}

	return nil
}

func writeFormats(w io.Writer, format string, descs []entity.FormatDescriptor) error {
	if format != outputText {
		return encode(w, format, descs)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLABEL\tSELECTOR\tSIZE (MB)")

	for i, d := range descs {
		size := consts.NotAvailable
		if d.Size != nil {
			size = strconv.FormatFloat(maths.RoundTo(calc.Megabytes(*d.Size), 1), 'f', -1, 64)
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, d.Label, d.Selector(), size)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write formats: %w", err)
	}

	return nil
}
