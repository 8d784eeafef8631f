package models

// ToolParam описывает один параметр схемы инструмента.
type ToolParam struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Tool именованная способность, которую агент может вызывать при выполнении
// задачи. Инструмент ссылается из списка агента по имени; деактивация
// инструмента не удаляет его из списков агентов, но исключает из запусков.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Params      []ToolParam `json:"params"`
	IsActive    bool        `json:"is_active"`
}
