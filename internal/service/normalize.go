package service

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
)

// sentinelAbsent - значение-заглушка, равнозначное отсутствию данных
const sentinelAbsent = "NA"

var turkishFolder = strings.NewReplacer(
	"ı", "i", "ç", "c", "ğ", "g", "ö", "o", "ş", "s", "ü", "u",
	"â", "a", "î", "i", "û", "u",
)

// fold приводит строку к нижнему регистру по турецким правилам и заменяет
// турецкие буквы на ASCII: "KAYIP", "Kayıp" и "kayip" совпадают.
func fold(s string) string {
	lower := cases.Lower(language.Turkish).String(strings.TrimSpace(s))
	return turkishFolder.Replace(lower)
}

// absent сообщает, что значение пустое или заглушка
func absent(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, sentinelAbsent)
}

// optional возвращает nil для пустых значений и заглушек
func optional(v string) *string {
	if absent(v) {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}

// lookup возвращает первое непустое значение из набора псевдонимов поля.
// Сначала проверяются точные имена в порядке приоритета, затем те же имена
// без учёта регистра и турецких букв.
func lookup(rec dto.RawRecord, aliases []string) (string, error) {
	for _, key := range aliases {
		v, err := rec.Text(key)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}

	keys := rec.Keys()
	sort.Strings(keys)
	folded := make(map[string]string, len(keys))
	for _, k := range keys {
		fk := fold(k)
		if _, seen := folded[fk]; !seen {
			folded[fk] = k
		}
	}

	for _, key := range aliases {
		original, ok := folded[fold(key)]
		if !ok || original == key {
			continue
		}
		v, err := rec.Text(original)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}

	return "", nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
}

// parseDate разбирает дату из таблицы: ISO, турецкий формат или серийный номер Excel
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("invalid date %q", value)
}

var assignmentStatusAliases = map[string]domain.AssignmentStatus{
	"":            domain.AssignmentActive,
	"aktif":       domain.AssignmentActive,
	"active":      domain.AssignmentActive,
	"iade":        domain.AssignmentReturned,
	"iade edildi": domain.AssignmentReturned,
	"returned":    domain.AssignmentReturned,
	"kayip":       domain.AssignmentLost,
	"lost":        domain.AssignmentLost,
	"hasarli":     domain.AssignmentDamaged,
	"damaged":     domain.AssignmentDamaged,
	"pasif":       domain.AssignmentInactive,
	"inactive":    domain.AssignmentInactive,
}

// parseAssignmentStatus переводит турецкое или английское название состояния.
// Пустое значение означает ACTIVE, неизвестное - ошибка.
func parseAssignmentStatus(value string) (domain.AssignmentStatus, error) {
	status, ok := assignmentStatusAliases[fold(value)]
	if !ok {
		return "", errors.Wrapf(domain.ErrInvalidStatus, "%q", value)
	}
	return status, nil
}

// emailFromName строит адрес вида "ayse.yilmaz@domain" из имени сотрудника;
// n > 1 добавляет номер: "ayse.yilmaz.2@domain"
func emailFromName(name, domainName string, n int) string {
	local := strings.Join(strings.Fields(fold(name)), ".")
	if n > 1 {
		local += "." + strconv.Itoa(n)
	}
	return local + "@" + domainName
}

// splitBrandModel делит "Apple iPhone 13" на марку и модель по первому пробелу
func splitBrandModel(value string) (brand, model string) {
	parts := strings.Fields(value)
	switch len(parts) {
	case 0:
		return unspecified, unspecified
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
