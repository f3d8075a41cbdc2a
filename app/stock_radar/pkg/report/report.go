// Package report 将分析结果写成 markdown 和 HTML 文件。
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	dm "github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Clean 去掉模型输出外层的代码块标记
func Clean(input string) string {
	cleaned := strings.TrimSpace(input)

	if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") && len(cleaned) >= 6 {
		cleaned = strings.TrimSuffix(cleaned, "```")
		// 去掉 ```markdown / ```md 这类语言标记所在的首行
		if i := strings.IndexByte(cleaned, '\n'); i >= 0 {
			cleaned = cleaned[i+1:]
		} else {
			cleaned = strings.TrimPrefix(cleaned, "```")
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	return cleaned
}

// Report 一次分析的输出
type Report struct {
	Ticker string
	Date   time.Time
	Output *dm.CrewOutput
}

// FileName 不含扩展名的文件名: <TICKER>_<YYYY-MM-DD>
func (r *Report) FileName() string {
	return fmt.Sprintf("%s_%s", r.Ticker, r.Date.Format(time.DateOnly))
}

// WriteMarkdown 写入最终报告的 markdown，返回文件路径
func (r *Report) WriteMarkdown(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, r.FileName()+".md")
	if err := os.WriteFile(path, []byte(Clean(r.Output.Raw)+"\n"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// RenderMarkdown 将 markdown 渲染为 HTML 片段
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Clean(src)), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

type section struct {
	Name  string
	Agent string
	Body  template.HTML
}

type pageData struct {
	Ticker   string
	Date     string
	Final    template.HTML
	Sections []section
}

// WriteHTML 写入包含最终建议和各阶段输出的 HTML 页面，返回文件路径
func (r *Report) WriteHTML(dir string) (string, error) {
	data := pageData{Ticker: r.Ticker, Date: r.Date.Format(time.DateOnly)}

	final, err := RenderMarkdown(r.Output.Raw)
	if err != nil {
		return "", fmt.Errorf("render final report: %w", err)
	}
	data.Final = final

	for _, t := range r.Output.Tasks {
		body, err := RenderMarkdown(t.Raw)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", t.Name, err)
		}
		data.Sections = append(data.Sections, section{Name: t.Name, Agent: t.Agent, Body: body})
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, r.FileName()+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := pageTpl.Execute(f, data); err != nil {
		return "", err
	}
	return path, nil
}

var pageTpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Ticker}} Stock Analysis | {{.Date}}</title>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 32px; }
        h1 { font-size: 2.2rem; margin: 0 0 8px 0; }
        .date-info { color: var(--text-secondary); }
        .card {
            background: var(--card-bg);
            padding: 24px;
            border-radius: 12px;
            margin-bottom: 24px;
            border: 1px solid var(--border-color);
            box-shadow: 0 4px 6px -1px rgba(0,0,0,0.1);
        }
        .final { border-left: 4px solid var(--primary-color); }
        details summary { cursor: pointer; font-weight: 600; }
        .agent { color: var(--text-secondary); font-weight: normal; }
        table { border-collapse: collapse; }
        th, td { border: 1px solid var(--border-color); padding: 4px 8px; }
    </style>
</head>
<body>
<div class="container">
    <header>
        <h1>{{.Ticker}}</h1>
        <div class="date-info">{{.Date}}</div>
    </header>
    <section class="card final">{{.Final}}</section>
    {{range .Sections}}
    <details class="card">
        <summary>{{.Name}} <span class="agent">{{.Agent}}</span></summary>
        {{.Body}}
    </details>
    {{end}}
</div>
</body>
</html>
`))
