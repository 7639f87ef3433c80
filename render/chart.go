// Package render 将一次运行的四条序列叠加绘制为静态图片.
package render

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/wyfcoding/kalmantrack/config"
	"github.com/wyfcoding/kalmantrack/estimation"
	"github.com/wyfcoding/kalmantrack/xerrors"
)

// DefaultTitle 图表默认标题.
const DefaultTitle = "Position and Speed"

// 图片按 96 DPI 换算像素.
const pixelsPerInch = 96

var (
	colorPosition    = color.RGBA{R: 220, A: 255}
	colorVelocity    = color.RGBA{B: 220, A: 255}
	colorObservation = color.RGBA{G: 160, A: 255}
	colorEstimate    = color.RGBA{R: 128, B: 128, A: 255}
)

// Options 图表外观参数.
type Options struct {
	Title  string
	Width  int // 像素
	Height int // 像素
	FixedY bool
	YMin   float64
	YMax   float64
}

// OptionsFromConfig 由图表配置构造 Options.
func OptionsFromConfig(c config.ChartConfig) Options {
	return Options{
		Title:  c.Title,
		Width:  c.Width,
		Height: c.Height,
		FixedY: c.FixedY,
		YMin:   c.YMin,
		YMax:   c.YMax,
	}
}

type series struct {
	label   string
	data    estimation.Trajectory
	color   color.Color
	scatter bool // 观测值以散点绘制
}

// Chart 构建四条序列：真实位置、真实速度、观测值 (散点)、滤波估计，横轴为步序号 0..N.
func Chart(res *estimation.Result, opts Options) (*plot.Plot, error) {
	if res == nil || len(res.Positions) == 0 {
		return nil, xerrors.EmptyData("nothing to render")
	}

	all := []series{
		{"position", res.Positions, colorPosition, false},
		{"velocity", res.Velocities, colorVelocity, false},
		{"observations", res.Observations, colorObservation, true},
		{"estimate", res.Estimates, colorEstimate, false},
	}
	want := len(res.Positions)
	for _, s := range all {
		if len(s.data) != want {
			return nil, xerrors.LengthMismatch(want, len(s.data)).WithContext("series", s.label)
		}
	}

	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Y.Label.Text = "value"
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	for _, s := range all {
		if s.scatter {
			sc, err := plotter.NewScatter(points(s.data))
			if err != nil {
				return nil, xerrors.RenderFailed("build "+s.label+" series", err)
			}
			sc.GlyphStyle.Color = s.color
			sc.GlyphStyle.Shape = draw.CircleGlyph{}
			sc.GlyphStyle.Radius = vg.Points(0.8)
			p.Add(sc)
			p.Legend.Add(s.label, sc)
			continue
		}

		line, err := plotter.NewLine(points(s.data))
		if err != nil {
			return nil, xerrors.RenderFailed("build "+s.label+" series", err)
		}
		line.LineStyle.Color = s.color
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}

	if opts.FixedY {
		p.Y.Min = opts.YMin
		p.Y.Max = opts.YMax
	}

	return p, nil
}

// Save 按扩展名选择格式写出图片，失败统一包装为 RenderFailed.
func Save(p *plot.Plot, path string, width, height int) error {
	if err := p.Save(pixels(width), pixels(height), path); err != nil {
		return xerrors.RenderFailed("save "+path, err)
	}
	return nil
}

// WriteChart 构建并写出图表.
func WriteChart(res *estimation.Result, path string, opts Options) error {
	p, err := Chart(res, opts)
	if err != nil {
		return err
	}
	return Save(p, path, opts.Width, opts.Height)
}

func points(data estimation.Trajectory) plotter.XYs {
	pts := make(plotter.XYs, len(data))
	for i, v := range data {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	return pts
}

func pixels(n int) vg.Length {
	if n <= 0 {
		n = 800
	}
	return vg.Length(n) * vg.Inch / pixelsPerInch
}
