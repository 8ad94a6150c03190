package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/dynecs/component"
)

// Glyph palette, dark/normal/bright per glyph type
var (
	rgbGreen = [3]tcell.Color{tcell.NewRGBColor(0, 130, 0), tcell.NewRGBColor(0, 200, 0), tcell.NewRGBColor(50, 255, 50)}
	rgbBlue  = [3]tcell.Color{tcell.NewRGBColor(60, 100, 200), tcell.NewRGBColor(100, 150, 255), tcell.NewRGBColor(140, 190, 255)}
	rgbRed   = [3]tcell.Color{tcell.NewRGBColor(180, 50, 50), tcell.NewRGBColor(255, 80, 80), tcell.NewRGBColor(255, 120, 120)}
	rgbGold  = tcell.NewRGBColor(255, 255, 0)

	rgbBorder     = tcell.NewRGBColor(180, 180, 180)
	rgbStatusBar  = tcell.NewRGBColor(255, 255, 255)
	rgbBackground = tcell.NewRGBColor(26, 27, 38)
	rgbDense      = tcell.NewRGBColor(0, 200, 200)
	rgbGeneral    = tcell.NewRGBColor(255, 165, 0)
)

const (
	frameInterval = 16 * time.Millisecond
	panelWidth    = 44
	maxListed     = 6
)

func glyphStyle(g component.GlyphComponent) tcell.Style {
	base := tcell.StyleDefault.Background(rgbBackground)
	level := min(max(int(g.Level), 0), 2)
	switch g.Type {
	case component.GlyphBlue:
		return base.Foreground(rgbBlue[level])
	case component.GlyphRed:
		return base.Foreground(rgbRed[level])
	case component.GlyphGold:
		return base.Foreground(rgbGold).Bold(true)
	default:
		return base.Foreground(rgbGreen[level])
	}
}

// UI drives the sandbox in a terminal
type UI struct {
	screen  tcell.Screen
	sim     *Sim
	playing bool
	message string
}

// NewUI initialises the terminal screen
func NewUI(sim *Sim) (*UI, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.SetStyle(tcell.StyleDefault.Background(rgbBackground))
	return &UI{screen: screen, sim: sim}, nil
}

// Fini restores the terminal
func (u *UI) Fini() {
	u.screen.Fini()
}

// Run loops until the user quits
func (u *UI) Run() {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := u.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()

	u.sim.Step()
	u.draw()
	for {
		select {
		case ev, ok := <-events:
			if !ok || !u.handleInput(ev) {
				return
			}
			u.draw()
		case now := <-ticker.C:
			if u.playing && now.Sub(last) >= TickDuration {
				last = now
				u.advance()
			}
			u.draw()
		}
	}
}

// advance closes the current change window and runs the systems in the next one
func (u *UI) advance() {
	u.sim.Advance()
	u.sim.Step()
	failed := 0
	for _, r := range u.sim.OpResults() {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		u.message = fmt.Sprintf("%d ops failed, see log", failed)
	}
}

func (u *UI) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				u.advance()
				u.message = fmt.Sprintf("tick %d", u.sim.world.ChangeTick())
			case 'p':
				u.playing = !u.playing
			case 's':
				e := u.sim.SpawnRandom()
				u.message = "spawned " + e.String()
			case 'm':
				if e, ok := u.sim.ToggleMarker(); ok {
					u.message = "toggled marker on " + e.String()
				}
			}
		}
	case *tcell.EventResize:
		u.screen.Sync()
	}
	return true
}

func (u *UI) draw() {
	u.screen.Clear()
	width, height := u.sim.scenario.Width, u.sim.scenario.Height

	border := tcell.StyleDefault.Foreground(rgbBorder).Background(rgbBackground)
	for x := 0; x <= width+1; x++ {
		u.screen.SetContent(x, 0, '─', nil, border)
		u.screen.SetContent(x, height+1, '─', nil, border)
	}
	for y := 0; y <= height+1; y++ {
		u.screen.SetContent(0, y, '│', nil, border)
		u.screen.SetContent(width+1, y, '│', nil, border)
	}

	for _, c := range u.sim.Cells() {
		if c.X < 0 || c.X >= width || c.Y < 0 || c.Y >= height {
			continue
		}
		u.screen.SetContent(c.X+1, c.Y+1, c.Glyph.Rune, nil, glyphStyle(c.Glyph))
	}

	u.drawPanel(width + 3)

	w := u.sim.world
	status := fmt.Sprintf(" tick %d  entities %d  archetypes %d  tables %d  expired %d  %s",
		w.ChangeTick(), w.Len(), w.Archetypes().Len(), w.Tables().Len(), u.sim.expired, u.message)
	u.drawText(0, height+2, tcell.StyleDefault.Foreground(rgbStatusBar).Background(rgbBackground), status)
	u.drawText(0, height+3, border, " space step  p play  s spawn  m marker  q quit")

	u.screen.Show()
}

func (u *UI) drawPanel(x int) {
	y := 0
	for _, v := range u.sim.Views() {
		style := tcell.StyleDefault.Foreground(rgbGeneral).Background(rgbBackground)
		path := "archetype"
		if v.Dense {
			style = style.Foreground(rgbDense)
			path = "dense"
		}
		u.drawText(x, y, style.Bold(true), fmt.Sprintf("%s  %d items  %d archetypes  %s", v.Name, len(v.Entities), v.Archetypes, path))
		y++
		u.drawText(x+1, y, tcell.StyleDefault.Foreground(rgbBorder).Background(rgbBackground), truncate(v.Descriptor, panelWidth))
		y++
		line := ""
		for i, e := range v.Entities {
			if i == maxListed {
				line += " …"
				break
			}
			line += " " + e.String()
		}
		u.drawText(x+1, y, tcell.StyleDefault.Foreground(rgbStatusBar).Background(rgbBackground), truncate(line, panelWidth))
		y += 2
	}
}

func (u *UI) drawText(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		u.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
