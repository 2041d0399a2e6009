package cli

import (
	"io"
	"time"

	"vidgrab/internal/entity"
	"vidgrab/pkg/calc"
	"vidgrab/pkg/maths"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const (
	barTotal = 100
	barWidth = 40
)

// track draws a progress bar for one job's events and returns its terminal
// event. It returns once the event channel is closed.
func track(w io.Writer, title string, events <-chan entity.Event) entity.Event {
	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(barWidth))
	started := time.Now()

	bar := p.AddBar(barTotal,
		mpb.PrependDecorators(decor.Name(title, decor.WCSyncSpaceR)),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Any(func(s decor.Statistics) string {
				eta := calc.ETA(float64(s.Current), started)
				if eta <= 0 {
					return ""
				}

				return "ETA " + eta.Round(time.Second).String()
			}, decor.WCSyncSpace),
		),
	)

	var terminal entity.Event

	for ev := range events {
		switch ev.Kind {
		case entity.EventProgress:
			bar.SetCurrent(int64(maths.RoundFloat64ToInt(ev.Percent)))
		case entity.EventSucceeded, entity.EventFailed:
			terminal = ev
		case entity.EventFinished:
		}
	}

	if terminal.Kind == entity.EventSucceeded {
		bar.SetTotal(-1, true)
	} else {
		bar.Abort(false)
	}

	p.Wait()

	return terminal
}
