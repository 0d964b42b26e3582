// Package spectrogram rasterizes mel spectrograms to PNG.
package spectrogram

import (
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/zudsniper/forensic-audio-analyzer/internal/features"
)

// DefaultPath is the file name the pipeline writes the image to.
const DefaultPath = "spectrogram.png"

// Options controls the rendered image.
type Options struct {
	Width    vg.Length
	Height   vg.Length
	DPI      int
	BarWidth vg.Length
	Title    string
	TopDB    float64
}

// DefaultOptions returns a 10x4 inch image at 100 DPI (1000x400 pixels)
// clipped to 80 dB below the peak.
func DefaultOptions() Options {
	return Options{
		Width:    10 * vg.Inch,
		Height:   4 * vg.Inch,
		DPI:      100,
		BarWidth: 1.2 * vg.Inch,
		Title:    "Mel Spectrogram",
		TopDB:    80,
	}
}

// grid adapts a bands x frames dB matrix to plotter.GridXYZ: columns are
// frames (time), rows are mel bands.
type grid struct {
	db    *mat.Dense
	times []float64
	mels  []float64
}

func (g grid) Dims() (c, r int)   { r, c = g.db.Dims(); return c, r }
func (g grid) Z(c, r int) float64 { return g.db.At(r, c) }
func (g grid) X(c int) float64    { return g.times[c] }
func (g grid) Y(r int) float64    { return g.mels[r] }

// melTicks places ticks on the mel axis at octave frequencies, labelled in Hz.
type melTicks struct{}

func (melTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for _, hz := range []float64{0, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384} {
		m := features.HzToMel(hz)
		if m < min || m > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: m, Label: strconv.FormatFloat(hz, 'f', -1, 64)})
	}
	return ticks
}

type dbTicks struct{}

func (dbTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = fmt.Sprintf("%+2.0f dB", ticks[i].Value)
		}
	}
	return ticks
}

// Render draws s in decibels relative to its peak and writes a PNG to path,
// replacing any existing file.
func Render(path string, s *features.Spectrogram, opts Options) error {
	db := features.PowerToDB(s.Power, mat.Max(s.Power), 1e-10, opts.TopDB)
	lo, hi := mat.Min(db), mat.Max(db)
	if hi <= lo {
		lo = hi - 1
	}

	bands, frames := s.Dims()
	times := make([]float64, frames)
	for i := range times {
		times[i] = s.FrameTime(i)
	}
	mels := make([]float64, bands)
	for i, hz := range s.BandCenters() {
		mels[i] = features.HzToMel(hz)
	}

	cm := moreland.ExtendedBlackBody()
	cm.SetMin(lo)
	cm.SetMax(hi)

	heat := plotter.NewHeatMap(grid{db: db, times: times, mels: mels}, cm.Palette(255))
	heat.Min, heat.Max = lo, hi

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Hz"
	p.Y.Tick.Marker = melTicks{}
	p.Add(heat)

	bar := plot.New()
	bar.Title.Text = " "
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	bar.HideX()
	bar.Y.Padding = 0
	bar.Y.Tick.Marker = dbTicks{}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = vgimg.DefaultDPI
	}
	img := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(dpi))
	dc := draw.New(img)
	p.Draw(draw.Crop(dc, 0, -opts.BarWidth, 0, 0))
	bar.Draw(draw.Crop(dc, opts.Width-opts.BarWidth, 0, 0, 0))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
