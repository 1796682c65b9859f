package mcptest

import (
	"fmt"
	"strings"
	"time"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcptest/fakeserver"
)

// Metadata is a scripted 1C metadata tree served by Handler.
type Metadata struct {
	// Objects maps a meta-type to its object names.
	Objects map[string][]string
	// Predefined maps "<metaType>.<name>" to predefined item names.
	Predefined map[string][]string
	// Structured lists objects as a JSON array instead of newline text.
	Structured bool
}

// DefaultMetadata returns a small tree with predefined items under Catalogs.
func DefaultMetadata() Metadata {
	return Metadata{
		Objects: map[string][]string{
			"Catalogs":  {"Номенклатура", "Контрагенты", "Валюты"},
			"Documents": {"ПоступлениеТоваров", "РеализацияТоваров"},
		},
		Predefined: map[string][]string{
			"Catalogs.Номенклатура": {"Основной", "Дополнительный"},
			"Catalogs.Контрагенты":  {"Основной"},
			"Catalogs.Валюты":       {"Рубль", "Доллар", "Евро"},
		},
	}
}

// ListingLine formats an object the way the service lists it.
func ListingLine(metaType, name string) string {
	return fmt.Sprintf("%s.%s (%s)", metaType, name, name)
}

// Handler answers the four metadata tools from the tree.
func (m Metadata) Handler() fakeserver.ToolHandler {
	return func(name string, args map[string]any) fakeserver.ToolCallResult {
		metaType, _ := args["metaType"].(string)
		objName, _ := args["name"].(string)

		switch name {
		case "list_metadata_objects":
			mask, _ := args["nameMask"].(string)
			var lines []string
			for _, obj := range m.Objects[metaType] {
				if mask != "" && !strings.Contains(obj, mask) {
					continue
				}
				lines = append(lines, ListingLine(metaType, obj))
			}
			if max, ok := args["maxItems"].(float64); ok && int(max) < len(lines) {
				lines = lines[:int(max)]
			}
			if len(lines) == 0 {
				return fakeserver.TextResult("")
			}
			if m.Structured {
				return fakeserver.JSONResult(lines)
			}
			return fakeserver.TextResult(strings.Join(lines, "\n"))

		case "get_metadata_structure":
			if !m.hasObject(metaType, objName) {
				return fakeserver.TextResult(fmt.Sprintf("Ошибка: объект %s.%s не найден", metaType, objName))
			}
			return fakeserver.JSONResult(map[string]any{
				"name":       objName,
				"metaType":   metaType,
				"attributes": []string{"Код", "Наименование"},
			})

		case "list_predefined_data":
			items := m.Predefined[metaType+"."+objName]
			if len(items) == 0 {
				return fakeserver.TextResult("")
			}
			lines := []string{fmt.Sprintf("Предопределенные данные %s.%s:", metaType, objName)}
			for _, item := range items {
				lines = append(lines, fmt.Sprintf("Имя: '%s'", item))
			}
			return fakeserver.TextResult(strings.Join(lines, "\n"))

		case "get_predefined_data":
			predefined, _ := args["predefinedName"].(string)
			for _, item := range m.Predefined[metaType+"."+objName] {
				if item == predefined {
					return fakeserver.JSONResult(map[string]any{
						"name":   predefined,
						"owner":  metaType + "." + objName,
						"folder": false,
					})
				}
			}
			return fakeserver.TextResult(fmt.Sprintf("Ошибка: предопределенный элемент %q не найден", predefined))
		}

		return fakeserver.ToolCallResult{
			Content: []fakeserver.ContentBlock{{Type: "text", Text: "Unknown tool: " + name}},
			IsError: true,
		}
	}
}

func (m Metadata) hasObject(metaType, name string) bool {
	for _, obj := range m.Objects[metaType] {
		if obj == name {
			return true
		}
	}
	return false
}

// MetadataTools returns the catalog of the four metadata tools with their
// input schemas.
func MetadataTools() []Tool {
	str := map[string]any{"type": "string"}
	obj := func(required []string, props map[string]any) map[string]any {
		return map[string]any{"type": "object", "required": required, "properties": props}
	}
	maxItems := map[string]any{"type": "integer", "minimum": 1, "maximum": 1000}
	return []Tool{
		{
			Name:        "list_metadata_objects",
			Description: "List metadata objects of a type",
			InputSchema: obj([]string{"metaType"}, map[string]any{"metaType": str, "nameMask": str, "maxItems": maxItems}),
		},
		{
			Name:        "get_metadata_structure",
			Description: "Describe the structure of a metadata object",
			InputSchema: obj([]string{"metaType", "name"}, map[string]any{"metaType": str, "name": str}),
		},
		{
			Name:        "list_predefined_data",
			Description: "List predefined items of an object",
			InputSchema: obj([]string{"metaType", "name"}, map[string]any{"metaType": str, "name": str, "predefinedMask": str, "maxItems": maxItems}),
		},
		{
			Name:        "get_predefined_data",
			Description: "Describe one predefined item",
			InputSchema: obj([]string{"metaType", "name", "predefinedName"}, map[string]any{"metaType": str, "name": str, "predefinedName": str}),
		},
	}
}

// DefaultConfig returns a sessionful JSON-framed server backed by DefaultMetadata.
func DefaultConfig() FakeServerConfig {
	return FakeServerConfig{
		Tools:       MetadataTools(),
		SessionID:   "test-session-1",
		ToolHandler: DefaultMetadata().Handler(),
	}
}

// SessionlessConfig returns a server that never issues a session id.
func SessionlessConfig() FakeServerConfig {
	cfg := DefaultConfig()
	cfg.SessionID = ""
	return cfg
}

// SSEConfig returns a server that frames every response as SSE.
func SSEConfig() FakeServerConfig {
	cfg := DefaultConfig()
	cfg.Framing = fakeserver.FramingSSE
	return cfg
}

// SlowInitConfig returns a config that delays the initialize response.
func SlowInitConfig(delay time.Duration) FakeServerConfig {
	cfg := DefaultConfig()
	cfg.Delays = map[string]time.Duration{"initialize": delay}
	return cfg
}

// MalformedInitConfig returns a config whose initialize envelope lacks a result.
func MalformedInitConfig() FakeServerConfig {
	cfg := DefaultConfig()
	cfg.OmitInitializeResult = true
	return cfg
}
