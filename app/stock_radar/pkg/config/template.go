package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

var (
	// ErrMissingVariable 模板引用了未提供的变量
	ErrMissingVariable = errors.New("missing template variable")
	// ErrInvalidPlaceholder 模板中存在无法解析的占位符
	ErrInvalidPlaceholder = errors.New("invalid placeholder")
)

// TemplateError 模板替换错误，带出错位置
type TemplateError struct {
	Kind     error
	Variable string
	Line     int
	Col      int
}

func (e *TemplateError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("%v %q at line %d, col %d", e.Kind, e.Variable, e.Line, e.Col)
	}
	return fmt.Sprintf("%v at line %d, col %d", e.Kind, e.Line, e.Col)
}

func (e *TemplateError) Unwrap() error {
	return e.Kind
}

// $$ | $name | ${name} | 其余 $ 均视为非法
var placeholderRe = regexp.MustCompile(`\$(?:(\$)|([_a-zA-Z][_a-zA-Z0-9]*)|\{([_a-zA-Z][_a-zA-Z0-9]*)\}|())`)

// Substitute 按 $name / ${name} 替换变量，缺失变量直接报错而不是保留原文
func Substitute(text string, vars map[string]string) (string, error) {
	matches := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(text[last:m[0]])
		last = m[1]

		switch {
		case m[2] >= 0:
			sb.WriteByte('$')
		case m[4] >= 0 || m[6] >= 0:
			start, end := m[4], m[5]
			if start < 0 {
				start, end = m[6], m[7]
			}
			name := text[start:end]
			v, ok := vars[name]
			if !ok {
				line, col := position(text, m[0])
				return "", &TemplateError{Kind: ErrMissingVariable, Variable: name, Line: line, Col: col}
			}
			sb.WriteString(v)
		default:
			line, col := position(text, m[0])
			return "", &TemplateError{Kind: ErrInvalidPlaceholder, Line: line, Col: col}
		}
	}
	sb.WriteString(text[last:])
	return sb.String(), nil
}

// position 返回字节偏移对应的行号和列号 (从 1 开始)
func position(text string, offset int) (int, int) {
	before := text[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndex(before, "\n")
	return line, col
}

// RenderTemplate 读取模板文件并完成变量替换
func RenderTemplate(path string, vars map[string]string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := Substitute(string(raw), vars)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", path, err)
	}
	return []byte(out), nil
}

// LoadTemplate 读取 yaml 模板，替换变量后解析为嵌套 map
func LoadTemplate(path string, vars map[string]string) (map[string]any, error) {
	data, err := RenderTemplate(path, vars)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

// LoadAgentsConfig 加载角色配置
func LoadAgentsConfig(path string, vars map[string]string) (map[string]model.AgentConfig, error) {
	var out map[string]model.AgentConfig
	if err := loadInto(path, vars, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTasksConfig 加载任务配置
func LoadTasksConfig(path string, vars map[string]string) (map[string]model.TaskConfig, error) {
	var out map[string]model.TaskConfig
	if err := loadInto(path, vars, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func loadInto(path string, vars map[string]string, v any) error {
	data, err := RenderTemplate(path, vars)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
