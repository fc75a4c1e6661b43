package handlers

import (
    "fmt"
    "net/http"
    "time"
)

type ActiveUser struct {
    SubscriptionID string `json:"subscription_id"`
    CustomerName   string `json:"customer_name"`
    ConnectionType string `json:"connection_type"`
    DataUsed       string `json:"data_used"`
    ExpiryDate     string `json:"expiry_date"`
}

type UsagePoint struct {
    Date    string  `json:"date"`
    UsageMB float64 `json:"usage_mb"`
}

// formatBytes renders a byte count with the largest fitting unit.
func formatBytes(bytes float64) string {
    units := []string{"B", "KB", "MB", "GB", "TB"}
    i := 0
    for bytes >= 1024 && i < len(units)-1 {
        bytes /= 1024
        i++
    }
    return fmt.Sprintf("%.2f %s", bytes, units[i])
}

func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
    var activeCount, pendingPayments int
    var monthlyRevenue, totalUsageMB float64
    var currency string

    h.db.QueryRow("SELECT COUNT(*) FROM subscriptions WHERE status = 'Active'").Scan(&activeCount)
    h.db.QueryRow("SELECT COUNT(*) FROM subscriptions WHERE payment_status = 'Pending'").Scan(&pendingPayments)
    h.db.QueryRow(`
        SELECT COALESCE(SUM(p.price), 0), COALESCE(MAX(p.currency), 'KES')
        FROM subscriptions s
        JOIN internet_plans p ON p.id = s.plan_id
        WHERE s.payment_status = 'Completed'
          AND s.payment_date >= date_trunc('month', NOW())
    `).Scan(&monthlyRevenue, &currency)
    h.db.QueryRow("SELECT COALESCE(SUM(data_used_mb), 0) FROM subscriptions WHERE status = 'Active'").Scan(&totalUsageMB)

    activeUsers := h.activeUserList()
    usageSeries := h.usageSeries(30)

    recentFailures, err := h.audit.RecentFailures(10)
    if err != nil {
        h.logger.Error("Dashboard: failed to load recent failures", "error", err)
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
        "active_subscription_count": activeCount,
        "pending_payment_count":     pendingPayments,
        "monthly_revenue":           monthlyRevenue,
        "currency":                  currency,
        "total_usage_mb":            totalUsageMB,
        "total_usage":               formatBytes(totalUsageMB * 1024 * 1024),
        "active_users":              activeUsers,
        "usage_last_30_days":        usageSeries,
        "recent_failed_calls":       recentFailures,
    }})
}

func (h *Handler) activeUserList() []ActiveUser {
    rows, err := h.db.Query(`
        SELECT s.subscription_id, c.name, s.connection_type, s.data_used_mb, s.expiry_date
        FROM subscriptions s
        JOIN customers c ON c.id = s.customer_id
        WHERE s.status = 'Active'
        ORDER BY s.expiry_date
    `)
    if err != nil {
        h.logger.Error("Dashboard: failed to load active users", "error", err)
        return nil
    }
    defer rows.Close()

    var users []ActiveUser
    for rows.Next() {
        var subID, name, connType string
        var dataUsedMB float64
        var expiry time.Time
        rows.Scan(&subID, &name, &connType, &dataUsedMB, &expiry)
        users = append(users, ActiveUser{
            SubscriptionID: subID,
            CustomerName:   name,
            ConnectionType: connType,
            DataUsed:       fmt.Sprintf("%.2f MB", dataUsedMB),
            ExpiryDate:     expiry.Format("2006-01-02"),
        })
    }
    return users
}

func (h *Handler) usageSeries(days int) []UsagePoint {
    rows, err := h.db.Query(`
        SELECT date_trunc('day', updated_at)::date AS day, COALESCE(SUM(data_used_mb), 0)
        FROM subscriptions
        WHERE updated_at > NOW() - ($1 || ' days')::interval
        GROUP BY day ORDER BY day
    `, fmt.Sprintf("%d", days))
    if err != nil {
        h.logger.Error("Dashboard: failed to load usage series", "error", err)
        return nil
    }
    defer rows.Close()

    var series []UsagePoint
    for rows.Next() {
        var day time.Time
        var usage float64
        rows.Scan(&day, &usage)
        series = append(series, UsagePoint{Date: day.Format("2006-01-02"), UsageMB: usage})
    }
    return series
}
