package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"meslek-atlasi/internal/catalog"
	"meslek-atlasi/internal/model"
	"meslek-atlasi/pkg/llm"
	"meslek-atlasi/pkg/log"
)

// MaxRelevantProfessions 是检索阶段最多返回的职业数量。
const MaxRelevantProfessions = 5

// SearchService 让模型从完整目录中挑选与当前对话最相关的职业。
type SearchService interface {
	// Filter 从不返回错误：模型调用失败或输出无法解析时记录日志并返回空列表，
	// 因此“没有相关职业”与“检索失败”对调用方不可区分。
	Filter(ctx context.Context, historyText string, professions *catalog.Catalog) []model.Profession
}

type searchService struct {
	llmClient llm.Client
	prompts   Prompts
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(llmClient llm.Client, prompts Prompts) SearchService {
	return &searchService{llmClient: llmClient, prompts: prompts}
}

func (s *searchService) Filter(ctx context.Context, historyText string, professions *catalog.Catalog) []model.Profession {
	if professions.Len() == 0 {
		return []model.Profession{}
	}

	databaseText, err := professions.JSON()
	if err != nil {
		log.Errorf("[SearchService] 职业目录序列化失败: %v", err)
		return []model.Profession{}
	}

	raw, err := s.llmClient.Generate(ctx, s.buildPrompt(historyText, databaseText))
	if err != nil {
		log.Errorf("[SearchService] 检索模型调用失败: %v", err)
		return []model.Profession{}
	}

	result, err := DecodeProfessions(raw)
	if err != nil {
		log.Errorf("[SearchService] 检索结果解析失败: %v", err)
		return []model.Profession{}
	}
	if len(result) > MaxRelevantProfessions {
		result = result[:MaxRelevantProfessions]
	}
	return result
}

func (s *searchService) buildPrompt(historyText, databaseText string) string {
	var b strings.Builder
	b.WriteString(s.prompts.SearchInstruction)
	b.WriteString("\n\nSOHBET: ")
	b.WriteString(historyText)
	b.WriteString("\n\nVERİTABANI: ")
	b.WriteString(databaseText)
	b.WriteString("\n\nAlakalı meslekleri JSON listesi olarak döndür. Bulamazsan boş bir liste `[]` döndür.")
	return b.String()
}

// StripCodeFence 去掉模型可能包裹在答案外层的 ``` 或 ```json 标记。
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// 去掉语言标识，例如 json
		if i := strings.IndexAny(text, "\r\n"); i >= 0 && !strings.ContainsAny(text[:i], "[{") {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "json")
		}
		text = strings.TrimSpace(text)
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// DecodeProfessions 先去掉代码块标记，再把结果解析为职业记录列表。
// 非字符串的字段值会被转换为其文本形式，null 转换为空字符串。
func DecodeProfessions(raw string) ([]model.Profession, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return nil, fmt.Errorf("empty model output")
	}

	var items []map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("model output is not a JSON list: %w", err)
	}

	result := make([]model.Profession, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		p := make(model.Profession, len(item))
		for k, v := range item {
			p[k] = stringify(v)
		}
		result = append(result, p)
	}
	return result, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
