// Package chart renders channel series to PNG.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ghalamif/ProbeFlow/internal/domain"
	"github.com/ghalamif/ProbeFlow/internal/series"
)

// ErrNoData is returned when no channel has a point to draw.
var ErrNoData = errors.New("chart: no chartable samples")

// Palette holds the T1..T8 line colors.
var Palette = [domain.ChannelCount]drawing.Color{
	{R: 0x34, G: 0xC7, B: 0x59, A: 0xFF}, // green
	{R: 0x32, G: 0xAD, B: 0xE6, A: 0xFF}, // cyan
	{R: 0x8E, G: 0x8E, B: 0x93, A: 0xFF}, // gray
	{R: 0x00, G: 0x7A, B: 0xFF, A: 0xFF}, // blue
	{R: 0xFF, G: 0x95, B: 0x00, A: 0xFF}, // orange
	{R: 0xAF, G: 0x52, B: 0xDE, A: 0xFF}, // purple
	{R: 0xFF, G: 0x2D, B: 0x95, A: 0xFF}, // magenta
	{R: 0xFF, G: 0x3B, B: 0x30, A: 0xFF}, // red
}

const (
	LineWidth  = 1.5
	TimeLayout = "15:04:05"
)

type Options struct {
	Title    string
	Width    int
	Height   int
	Location *time.Location
}

func (o *Options) applyDefaults() {
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Height <= 0 {
		o.Height = 512
	}
	if o.Location == nil {
		o.Location = time.Local
	}
}

// Render draws every non-empty channel of set as a PNG into w.
func Render(w io.Writer, set *series.Set, opts Options) error {
	if set == nil || set.Len() == 0 {
		return ErrNoData
	}
	opts.applyDefaults()

	lines := make([]gochart.Series, 0, domain.ChannelCount)
	for i, ch := range set.Channels {
		xs := make([]float64, len(ch.Points))
		ys := make([]float64, len(ch.Points))
		for j, p := range ch.Points {
			xs[j] = p.X
			ys[j] = p.Y
		}
		// go-chart needs a non-zero x range
		if len(xs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		lines = append(lines, gochart.ContinuousSeries{
			Name: ch.Label,
			Style: gochart.Style{
				StrokeColor: Palette[i],
				StrokeWidth: LineWidth,
			},
			XValues: xs,
			YValues: ys,
		})
	}

	lo, hi, _ := set.Bounds()
	if hi-lo < 1 {
		mid := (hi + lo) / 2
		lo, hi = mid-0.5, mid+0.5
	}

	loc := opts.Location
	c := gochart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 20, Left: 16, Right: 12, Bottom: 16},
		},
		XAxis: gochart.XAxis{
			Name: "Time",
			ValueFormatter: func(v interface{}) string {
				f, ok := v.(float64)
				if !ok {
					return ""
				}
				sec, frac := math.Modf(f)
				return time.Unix(int64(sec), int64(frac*1e9)).In(loc).Format(TimeLayout)
			},
		},
		YAxis: gochart.YAxis{
			Name:  "Temperature (" + set.Unit.Symbol() + ")",
			Range: &gochart.ContinuousRange{Min: math.Floor(lo), Max: math.Ceil(hi)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: lines,
	}
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}

	return c.Render(gochart.PNG, w)
}
