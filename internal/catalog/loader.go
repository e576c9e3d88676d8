// Package catalog 在进程启动时加载职业数据集。
// 加载失败不会向调用方返回错误：记录日志后得到一个空目录，
// 系统其余部分在没有职业推荐的情况下继续工作。
package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"meslek-atlasi/internal/model"
	"meslek-atlasi/pkg/log"
	"meslek-atlasi/pkg/storage"
)

const minioScheme = "minio://"

// missingValues 中的单元格被视为缺失值，统一规范为空字符串。
var missingValues = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

// Catalog 是只读的职业记录集合，可被所有会话共享。
type Catalog struct {
	columns []string
	records []model.Profession

	jsonOnce sync.Once
	jsonText string
	jsonErr  error
}

// Empty 返回一个不含任何记录的目录。
func Empty() *Catalog {
	return &Catalog{}
}

// New 直接由记录构造目录，主要用于测试。
func New(records []model.Profession) *Catalog {
	return &Catalog{records: records}
}

// Records 返回全部记录。调用方不得修改返回值。
func (c *Catalog) Records() []model.Profession {
	if c == nil {
		return nil
	}
	return c.records
}

// Columns 返回数据集的列名。
func (c *Catalog) Columns() []string {
	if c == nil {
		return nil
	}
	return c.columns
}

// Len 返回记录数。
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Load 从本地路径或 minio://bucket/object 地址加载数据集。
// 任何读取或解析错误都会被记录，并返回空目录。
func Load(ctx context.Context, source string, requiredColumns []string) *Catalog {
	rc, err := open(ctx, source)
	if err != nil {
		log.Errorf("职业数据集加载失败: source=%s, err=%v", source, err)
		return Empty()
	}
	defer rc.Close()

	c, err := Parse(rc, requiredColumns)
	if err != nil {
		log.Errorf("职业数据集加载失败: source=%s, err=%v", source, err)
		return Empty()
	}
	log.Infof("职业数据集加载完成: source=%s, records=%d, columns=%d", source, c.Len(), len(c.columns))
	return c
}

func open(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, minioScheme) {
		bucket, object, ok := strings.Cut(strings.TrimPrefix(source, minioScheme), "/")
		if !ok || bucket == "" || object == "" {
			return nil, fmt.Errorf("invalid object address %q", source)
		}
		return storage.OpenObject(ctx, bucket, object)
	}
	return os.Open(source)
}

// Parse 读取 CSV：首行为表头，每个数据行成为一条以列名为键的记录。
// 缺少的单元格补为空字符串，重复的列名追加 .1、.2 后缀。
func Parse(r io.Reader, requiredColumns []string) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := dedupeColumns(header)

	if missing := missingColumns(columns, requiredColumns); len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var records []model.Profession
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(row) > len(columns) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(columns), len(row))
		}
		rec := make(model.Profession, len(columns))
		for i, col := range columns {
			value := ""
			if i < len(row) {
				value = normalize(row[i])
			}
			rec[col] = value
		}
		records = append(records, rec)
	}
	return &Catalog{columns: columns, records: records}, nil
}

func dedupeColumns(header []string) []string {
	seen := make(map[string]int, len(header))
	columns := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		columns[i] = name
	}
	return columns
}

func missingColumns(columns, required []string) []string {
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

func normalize(v string) string {
	if _, ok := missingValues[strings.TrimSpace(v)]; ok {
		return ""
	}
	return v
}

// JSON 返回目录的缩进 JSON 表示，非 ASCII 字符原样保留。
// 目录只读，因此序列化结果只计算一次。
func (c *Catalog) JSON() (string, error) {
	c.jsonOnce.Do(func() {
		c.jsonText, c.jsonErr = EncodeJSON(c.records)
	})
	return c.jsonText, c.jsonErr
}

// EncodeJSON 以缩进格式编码 v，不转义 HTML 与非 ASCII 字符。
func EncodeJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
