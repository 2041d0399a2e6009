// Package formats reduces an extractor's raw format listing to a short list
// of selectable quality tiers.
package formats

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"vidgrab/internal/consts"
	"vidgrab/internal/entity"
	"vidgrab/internal/errs"
	"vidgrab/pkg/calc"
)

// Options controls which formats are offered.
type Options struct {
	// Container is the only video extension kept. Defaults to mp4.
	Container string
	// AudioCodec names the audio-only entry. Defaults to mp3.
	AudioCodec string
}

func (o Options) withDefaults() Options {
	if o.Container == "" {
		o.Container = consts.DefaultContainer
	}

	if o.AudioCodec == "" {
		o.AudioCodec = consts.DefaultAudioCodec
	}

	return o
}

// Select keeps one video format per height (the largest known size wins),
// sorted by height descending, and appends the audio-only pseudo format.
// Formats without a height cannot be labeled and are skipped.
func Select(raw []entity.RawFormat, opts Options) []entity.FormatDescriptor {
	opts = opts.withDefaults()

	best := make(map[int]entity.RawFormat)

	for _, f := range raw {
		if !f.HasVideo() || f.Ext != opts.Container || f.Height == nil || *f.Height <= 0 {
			continue
		}

		h := *f.Height

		cur, ok := best[h]
		if !ok || sizeOf(f) > sizeOf(cur) {
			best[h] = f
		}
	}

	heights := make([]int, 0, len(best))
	for h := range best {
		heights = append(heights, h)
	}

	slices.SortFunc(heights, func(a, b int) int { return cmp.Compare(b, a) })

	out := make([]entity.FormatDescriptor, 0, len(heights)+1)

	for _, h := range heights {
		f := best[h]
		d := entity.FormatDescriptor{
			FormatID: f.FormatID,
			Height:   h,
			Size:     f.Size(),
			Ext:      f.Ext,
			HasAudio: f.HasAudio(),
		}
		d.Label = Label(d)
		out = append(out, d)
	}

	return append(out, AudioOnly(opts.AudioCodec))
}

// AudioOnly returns the pseudo format that fetches the best audio and
// transcodes it to codec.
func AudioOnly(codec string) entity.FormatDescriptor {
	if codec == "" {
		codec = consts.DefaultAudioCodec
	}

	return entity.FormatDescriptor{
		Label:     strings.ToUpper(codec) + " (Audio Only)",
		FormatID:  consts.AudioOnlyToken,
		Ext:       codec,
		AudioOnly: true,
		HasAudio:  true,
	}
}

// Label renders "<height>p - <size> MB - <ext>". Unknown sizes render as "??".
func Label(d entity.FormatDescriptor) string {
	if d.AudioOnly {
		return AudioOnly(d.Ext).Label
	}

	size := consts.UnknownSize
	if d.Size != nil {
		size = fmt.Sprintf("%.1f", calc.Megabytes(*d.Size))
	}

	return fmt.Sprintf("%dp - %s MB - %s", d.Height, size, d.Ext)
}

// Lookup finds the descriptor a user choice refers to. key may be a label,
// a format id, a "<height>p" tier or "audio".
func Lookup(descs []entity.FormatDescriptor, key string) (entity.FormatDescriptor, error) {
	key = strings.TrimSpace(key)

	for _, d := range descs {
		switch {
		case strings.EqualFold(key, d.Label), key == d.FormatID:
			return d, nil
		case d.AudioOnly && (strings.EqualFold(key, "audio") || strings.EqualFold(key, d.Ext)):
			return d, nil
		case !d.AudioOnly && strings.EqualFold(key, d.Tier()):
			return d, nil
		}
	}

	return entity.FormatDescriptor{}, fmt.Errorf("%w: %q", errs.ErrUnknownFormat, key)
}

// Resolve is Lookup that falls back to the extractor's "best" choice instead of failing.
func Resolve(descs []entity.FormatDescriptor, key string) entity.FormatDescriptor {
	d, err := Lookup(descs, key)
	if err != nil {
		return Fallback()
	}

	return d
}

// Fallback is the descriptor used when no listed format matches.
func Fallback() entity.FormatDescriptor {
	return entity.FormatDescriptor{
		Label:    consts.FallbackFormat,
		FormatID: consts.FallbackFormat,
		HasAudio: true,
	}
}

func sizeOf(f entity.RawFormat) int64 {
	if s := f.Size(); s != nil {
		return *s
	}

	return 0
}
