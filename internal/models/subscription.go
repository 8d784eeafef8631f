package models

import "time"

// Plan тарифный план подписки.
type Plan string

// Поддерживаемые тарифные планы.
const (
	PlanTrial   Plan = "trial"
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// Статусы подписки.
const (
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

// planLimits задает квоту на агентов и срок действия для каждого плана.
var planLimits = map[Plan]struct {
	maxAgents int
	days      int
}{
	PlanTrial:   {maxAgents: 2, days: 14},
	PlanMonthly: {maxAgents: 5, days: 30},
	PlanYearly:  {maxAgents: 10, days: 365},
}

// Valid сообщает, входит ли план в перечень поддерживаемых.
func (p Plan) Valid() bool {
	_, ok := planLimits[p]
	return ok
}

// MaxAgents возвращает квоту на количество агентов для плана.
func (p Plan) MaxAgents() int {
	return planLimits[p].maxAgents
}

// Duration возвращает срок действия плана.
func (p Plan) Duration() time.Duration {
	return time.Duration(planLimits[p].days) * 24 * time.Hour
}

// Subscription представляет подписку пользователя.
// У пользователя может быть несколько записей, но текущей считается
// только та, на которую указывает users.current_subscription_id.
type Subscription struct {
	ID        int64     `json:"id"`
	UserUID   string    `json:"user_uid"`
	Plan      Plan      `json:"plan"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	MaxAgents int       `json:"max_agents"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiredSubscriptionInfo передается в очередь уведомлений,
// когда подписка помечена истекшей.
type ExpiredSubscriptionInfo struct {
	Email   string    `json:"email"`
	Plan    Plan      `json:"plan"`
	EndDate time.Time `json:"end_date"`
}
