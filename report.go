package dcgan_go

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// LogEntry Averaged losses over display interval
type LogEntry struct {
	Epoch     int     `json:"epoch"`
	Iteration int     `json:"iteration"`
	GenLoss   float64 `json:"gen/loss"`
	DisLoss   float64 `json:"dis/loss"`
	Elapsed   float64 `json:"elapsed_time"`
}

// LogReport Accumulates per-step reports and summarizes them on demand
type LogReport struct {
	genLosses []float64
	disLosses []float64
	history   []LogEntry
	start     time.Time
}

// NewLogReport Constructor for LogReport. Elapsed time is counted from now
func NewLogReport() *LogReport {
	return &LogReport{start: time.Now()}
}

// Observe Remembers losses of single step
func (lr *LogReport) Observe(r *Report) {
	lr.genLosses = append(lr.genLosses, float64(r.GenLoss))
	lr.disLosses = append(lr.disLosses, float64(r.DisLoss))
}

// Pending Returns number of observed but not yet summarized steps
func (lr *LogReport) Pending() int {
	return len(lr.genLosses)
}

// Summary Averages observed losses, appends result to history and starts new interval
func (lr *LogReport) Summary(epoch, iteration int) (LogEntry, error) {
	if len(lr.genLosses) == 0 {
		return LogEntry{}, fmt.Errorf("There are no observations to summarize")
	}
	entry := LogEntry{
		Epoch:     epoch,
		Iteration: iteration,
		GenLoss:   stat.Mean(lr.genLosses, nil),
		DisLoss:   stat.Mean(lr.disLosses, nil),
		Elapsed:   time.Since(lr.start).Seconds(),
	}
	lr.history = append(lr.history, entry)
	lr.genLosses = lr.genLosses[:0]
	lr.disLosses = lr.disLosses[:0]
	return entry, nil
}

// History Returns every summary made so far
func (lr *LogReport) History() []LogEntry {
	return append([]LogEntry(nil), lr.history...)
}

// Restore Replaces history (e.g. by the one saved before training has been interrupted)
func (lr *LogReport) Restore(history []LogEntry) {
	lr.history = append([]LogEntry(nil), history...)
}

// Save Writes history as JSON array
func (lr *LogReport) Save(filename string) error {
	history := lr.history
	if history == nil {
		history = []LogEntry{}
	}
	bytes, err := json.MarshalIndent(history, "", "    ")
	if err != nil {
		return errors.Wrap(err, "Can't marshal log")
	}
	if err := ioutil.WriteFile(filename, bytes, 0644); err != nil {
		return errors.Wrap(err, "Can't write log")
	}
	return nil
}

// LoadLog Reads history written by LogReport.Save
func LoadLog(filename string) ([]LogEntry, error) {
	bytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	history := []LogEntry{}
	if err := json.Unmarshal(bytes, &history); err != nil {
		return nil, errors.Wrap(err, "Can't unmarshal log")
	}
	return history, nil
}

// PlotLosses Plot chart of averaged losses versus iteration
func PlotLosses(history []LogEntry, fname string) error {
	if len(history) == 0 {
		return fmt.Errorf("History must have one entry atleast")
	}
	genData := make(plotter.XYs, len(history))
	disData := make(plotter.XYs, len(history))
	for i, entry := range history {
		genData[i].X = float64(entry.Iteration)
		genData[i].Y = entry.GenLoss
		disData[i].X = float64(entry.Iteration)
		disData[i].Y = entry.DisLoss
	}
	genLine, err := plotter.NewLine(genData)
	if err != nil {
		return errors.Wrap(err, "Can't init line for gen/loss")
	}
	genLine.Color = color.RGBA{R: 255, B: 128, A: 255}
	disLine, err := plotter.NewLine(disData)
	if err != nil {
		return errors.Wrap(err, "Can't init line for dis/loss")
	}
	disLine.Color = color.RGBA{G: 128, B: 255, A: 255}

	p := plot.New()
	p.Title.Text = "Losses"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())
	p.Add(genLine, disLine)
	p.Legend.Add("gen/loss", genLine)
	p.Legend.Add("dis/loss", disLine)
	// Save the plot to a PNG file.
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}
