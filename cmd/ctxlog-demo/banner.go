// Copyright 2025 The Ctxlog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"ctxlog.dev/ctxlog/config"
)

type bannerInfo struct {
	addr     string
	settings *config.Settings
	tracing  bool
}

var (
	bannerGradient = []string{"12", "14", "10", "11"}
	categoryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(14).PaddingLeft(2)
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	disabledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// printBanner writes the startup banner. Colors are downsampled to what w
// supports and stripped entirely when w is not a terminal.
func printBanner(w io.Writer, environ []string, info bannerInfo) {
	cpw := colorprofile.NewWriter(w, environ)
	svc := info.settings.ServiceInfo()

	var out strings.Builder
	out.WriteString("\n")
	for _, line := range figure.NewFigure(svc.Name, "", false).Slicify() {
		if strings.TrimSpace(line) == "" {
			out.WriteString("\n")
			continue
		}
		for i, ch := range line {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(bannerGradient[i%len(bannerGradient)])).Bold(true)
			out.WriteString(style.Render(string(ch)))
		}
		out.WriteString("\n")
	}

	row := func(label, value string, enabled bool) {
		rendered := disabledStyle.Render("Disabled")
		if enabled {
			rendered = valueStyle.Render(value)
		}
		out.WriteString(labelStyle.Render(label) + "  " + rendered + "\n")
	}

	out.WriteString("\n" + categoryStyle.Render("Service") + "\n")
	row("Version:", svc.Version, true)
	row("Environment:", svc.Environment, true)
	row("Address:", displayAddr(info.addr), true)

	kafka := info.settings.Kafka
	out.WriteString("\n" + categoryStyle.Render("Logging") + "\n")
	row("Level:", info.settings.Logger.Level.String(), true)
	row("Format:", string(info.settings.Logger.Format), true)
	row("Kafka:", fmt.Sprintf("%s -> %s", strings.Join(kafka.Brokers, ","), kafka.Topic), kafka.Enabled)
	row("Tracing:", "stdout", info.tracing)

	out.WriteString(strings.Repeat("─", ruleWidth(w)) + "\n")
	_, _ = io.WriteString(cpw, out.String())
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "0.0.0.0" + addr
	}
	return "http://" + addr
}

// ruleWidth is the terminal width when w is one, 60 columns otherwise.
func ruleWidth(w io.Writer) int {
	const fallback = 60
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return min(width, 120)
}
