package dto

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RawRecord - строка таблицы в исходном виде: заголовок -> строка или число
type RawRecord map[string]any

// SourceRowKey - служебное поле с номером строки на листе xlsx.
// Ни с одним заголовком столбца оно не совпадает.
const SourceRowKey = "#row"

// Line возвращает номер строки в исходном листе, а без него fallback
func (r RawRecord) Line(fallback int) int {
	if n, ok := r[SourceRowKey].(int); ok && n > 0 {
		return n
	}
	return fallback
}

// Text возвращает значение поля key в виде обрезанной строки.
// Отсутствующее поле и null дают "". Числа переводятся в десятичную запись без экспоненты,
// остальные типы считаются ошибкой.
func (r RawRecord) Text(key string) (string, error) {
	value, ok := r[key]
	if !ok || value == nil {
		return "", nil
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", errors.Errorf("field %q: unsupported value type %T", key, value)
	}
}

// Keys возвращает имена полей записи
func (r RawRecord) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}
