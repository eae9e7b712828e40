package domain

// DeviceStatus - состояние устройства
type DeviceStatus string

const (
	DeviceAvailable   DeviceStatus = "AVAILABLE"
	DeviceAssigned    DeviceStatus = "ASSIGNED"
	DeviceMaintenance DeviceStatus = "MAINTENANCE"
	DeviceRepair      DeviceStatus = "REPAIR"
	DeviceRetired     DeviceStatus = "RETIRED"
)

// DeviceStatuses перечисляет все допустимые состояния устройства
var DeviceStatuses = []DeviceStatus{DeviceAvailable, DeviceAssigned, DeviceMaintenance, DeviceRepair, DeviceRetired}

// Valid сообщает, является ли значение известным состоянием
func (s DeviceStatus) Valid() bool {
	for _, known := range DeviceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AssignmentStatus - состояние зиммета
type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "ACTIVE"
	AssignmentReturned AssignmentStatus = "RETURNED"
	AssignmentInactive AssignmentStatus = "INACTIVE"
	AssignmentLost     AssignmentStatus = "LOST"
	AssignmentDamaged  AssignmentStatus = "DAMAGED"
)

// AssignmentStatuses перечисляет все допустимые состояния зиммета
var AssignmentStatuses = []AssignmentStatus{AssignmentActive, AssignmentReturned, AssignmentInactive, AssignmentLost, AssignmentDamaged}

// Valid сообщает, является ли значение известным состоянием
func (s AssignmentStatus) Valid() bool {
	for _, known := range AssignmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal сообщает, что из состояния нет переходов
func (s AssignmentStatus) Terminal() bool {
	return s.Valid() && s != AssignmentActive
}

// CanTransition проверяет переход зиммета из from в to.
// Разрешены только ACTIVE -> терминальное состояние и сохранение текущего состояния.
func CanTransition(from, to AssignmentStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	return from == AssignmentActive && to.Terminal()
}

// ConditionTag - состояние устройства, указанное при возврате
type ConditionTag string

const (
	// ConditionNone используется при редактировании зиммета
	ConditionNone    ConditionTag = ""
	ConditionGood    ConditionTag = "GOOD"
	ConditionDamaged ConditionTag = "DAMAGED"
)

// DeriveDeviceStatus вычисляет состояние устройства после перевода его зиммета в target.
//
// При редактировании (ConditionNone) LOST и DAMAGED списывают устройство,
// RETURNED и INACTIVE освобождают его. При возврате с пометкой DAMAGED
// устройство уходит в ремонт.
func DeriveDeviceStatus(target AssignmentStatus, condition ConditionTag) DeviceStatus {
	switch target {
	case AssignmentActive:
		return DeviceAssigned
	case AssignmentReturned:
		if condition == ConditionDamaged {
			return DeviceRepair
		}
		return DeviceAvailable
	case AssignmentLost, AssignmentDamaged:
		return DeviceRetired
	case AssignmentInactive:
		return DeviceAvailable
	default:
		return DeviceAssigned
	}
}
