package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/avscrape/internal/domain"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderReportTable 把 RunReport 的条目渲染成终端表格。
func renderReportTable(rr domain.RunReport) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"CODE", "STATUS", "SOURCE", "OUTPUT / ERROR"})

	for _, it := range rr.Items {
		code := it.Code
		if code == "" {
			code = "-"
		}
		detail := it.Error
		if it.Status == domain.StatusProcessed {
			detail = it.OutputDir
			if rel, err := filepath.Rel(rr.Path, it.OutputDir); err == nil && it.OutputDir != "" {
				detail = rel
			}
		}
		if detail == "" && it.Path != "" {
			detail = filepath.Base(it.Path)
		}
		tw.AppendRow(table.Row{code, it.Status, it.Source, truncate(detail, 80)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
