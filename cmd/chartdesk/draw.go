package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raykavin/chartdesk/pkg/chart"
)

var errBadDrawing = errors.New("invalid drawing")

// Position is a scripted pointer position. Index and Price, when set,
// replace X and Y with the pixel of that candle index or price.
type Position struct {
	X     float64  `yaml:"x"`
	Y     float64  `yaml:"y"`
	Index *float64 `yaml:"index"`
	Price *float64 `yaml:"price"`
}

func (p Position) resolve(m chart.Mapper) chart.Point {
	pt := chart.Point{X: p.X, Y: p.Y}
	if p.Index != nil {
		pt.X = m.ToPixel(chart.DataPoint{Index: *p.Index}).X
	}
	if p.Price != nil {
		pt.Y = m.Y(*p.Price)
	}
	return pt
}

// Drawing is one annotation replayed onto a view as pointer events.
type Drawing struct {
	Tool string   `yaml:"tool"`
	From Position `yaml:"from"`
	To   Position `yaml:"to"`
	Text string   `yaml:"text"`
}

// Script is a YAML file of drawings applied to every rendered symbol.
type Script struct {
	Width    float64   `yaml:"width"`
	Height   float64   `yaml:"height"`
	Drawings []Drawing `yaml:"drawings"`
}

// LoadScript reads a drawing script.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	for i, d := range s.Drawings {
		if _, err := drawingTool(d); err != nil {
			return Script{}, fmt.Errorf("drawing %d: %w", i+1, err)
		}
	}
	return s, nil
}

// ParseDrawing reads the compact --draw form:
//
//	trend:x1,y1,x2,y2
//	hline:y
//	flag:x,y,text
func ParseDrawing(spec string) (Drawing, error) {
	kind, args, ok := strings.Cut(spec, ":")
	if !ok {
		return Drawing{}, fmt.Errorf("%w: %q has no arguments", errBadDrawing, spec)
	}

	tool, err := chart.ParseTool(kind)
	if err != nil {
		return Drawing{}, err
	}

	switch tool {
	case chart.ToolTrendLine:
		v, err := floats(strings.Split(args, ","), 4)
		if err != nil {
			return Drawing{}, fmt.Errorf("%w: %q: %w", errBadDrawing, spec, err)
		}
		return Drawing{
			Tool: tool.String(),
			From: Position{X: v[0], Y: v[1]},
			To:   Position{X: v[2], Y: v[3]},
		}, nil

	case chart.ToolHorizontalLine:
		v, err := floats([]string{args}, 1)
		if err != nil {
			return Drawing{}, fmt.Errorf("%w: %q: %w", errBadDrawing, spec, err)
		}
		return Drawing{Tool: tool.String(), From: Position{Y: v[0]}}, nil

	case chart.ToolFlag:
		parts := strings.SplitN(args, ",", 3)
		if len(parts) < 2 {
			return Drawing{}, fmt.Errorf("%w: %q needs x,y[,text]", errBadDrawing, spec)
		}
		v, err := floats(parts[:2], 2)
		if err != nil {
			return Drawing{}, fmt.Errorf("%w: %q: %w", errBadDrawing, spec, err)
		}
		d := Drawing{Tool: tool.String(), From: Position{X: v[0], Y: v[1]}}
		if len(parts) == 3 {
			d.Text = parts[2]
		}
		return d, nil
	}

	return Drawing{}, fmt.Errorf("%w: %q draws nothing", errBadDrawing, spec)
}

func floats(parts []string, n int) ([]float64, error) {
	if len(parts) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(parts))
	}

	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func drawingTool(d Drawing) (chart.Tool, error) {
	tool, err := chart.ParseTool(d.Tool)
	if err != nil {
		return chart.ToolNone, err
	}
	if tool == chart.ToolNone {
		return chart.ToolNone, fmt.Errorf("%w: no tool", errBadDrawing)
	}
	return tool, nil
}

// Apply replays d onto v as the pointer gesture a user would make.
func (d Drawing) Apply(v *chart.View) error {
	tool, err := drawingTool(d)
	if err != nil {
		return err
	}

	m, ok := v.Mapper()
	if !ok {
		return errors.New("view has nothing to draw on")
	}

	from := d.From.resolve(m)
	to := from
	if tool == chart.ToolTrendLine {
		to = d.To.resolve(m)
	}

	if v.Session().ArmedTool != tool {
		v.ArmTool(tool)
	}
	v.PointerDown(from)
	v.PointerMove(to)
	v.PointerUp(to)

	if tool == chart.ToolFlag {
		v.SubmitFlagText(d.Text)
	}
	return nil
}
