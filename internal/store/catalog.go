package store

import (
    "database/sql"
    "fmt"

    "github.com/WinAndronuX/mikrotik-integration/internal/models"
    "github.com/WinAndronuX/mikrotik-integration/pkg/database"
)

// CatalogStore reads operator-owned configuration: routers and connection
// types.
type CatalogStore struct {
    db *database.DB
}

func NewCatalogStore(db *database.DB) *CatalogStore {
    return &CatalogStore{db: db}
}

const routerColumns = `id, name, host, port, username, password, use_tls, probe_only, last_sync, created_at, updated_at`

func (st *CatalogStore) Router(id int) (*models.Router, error) {
    var r models.Router
    err := st.db.QueryRow(`
        SELECT `+routerColumns+` FROM routers WHERE id = $1
    `, id).Scan(&r.ID, &r.Name, &r.Host, &r.Port, &r.Username, &r.Password,
        &r.UseTLS, &r.ProbeOnly, &r.LastSync, &r.CreatedAt, &r.UpdatedAt)
    if err == sql.ErrNoRows {
        return nil, fmt.Errorf("router %d not found", id)
    }
    if err != nil {
        return nil, err
    }
    return &r, nil
}

func (st *CatalogStore) Routers() ([]models.Router, error) {
    rows, err := st.db.Query(`SELECT ` + routerColumns + ` FROM routers ORDER BY name`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var routers []models.Router
    for rows.Next() {
        var r models.Router
        if err := rows.Scan(&r.ID, &r.Name, &r.Host, &r.Port, &r.Username, &r.Password,
            &r.UseTLS, &r.ProbeOnly, &r.LastSync, &r.CreatedAt, &r.UpdatedAt); err != nil {
            return nil, err
        }
        routers = append(routers, r)
    }
    return routers, rows.Err()
}

func (st *CatalogStore) TouchLastSync(id int) error {
    _, err := st.db.Exec("UPDATE routers SET last_sync = NOW(), updated_at = NOW() WHERE id = $1", id)
    return err
}

func (st *CatalogStore) ConnectionTypes() ([]models.ConnectionType, error) {
    rows, err := st.db.Query(`
        SELECT id, name, service_name, profile_name, parent_profile,
               speed_limit_rx, speed_limit_tx, burst_limit_rx, burst_limit_tx, created_at
        FROM connection_types ORDER BY name
    `)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var types []models.ConnectionType
    for rows.Next() {
        var ct models.ConnectionType
        if err := rows.Scan(&ct.ID, &ct.Name, &ct.ServiceName, &ct.ProfileName, &ct.ParentProfile,
            &ct.SpeedLimitRx, &ct.SpeedLimitTx, &ct.BurstLimitRx, &ct.BurstLimitTx, &ct.CreatedAt); err != nil {
            return nil, err
        }
        types = append(types, ct)
    }
    return types, rows.Err()
}
