package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations aplica as migrações pendentes de migrations/.
// connString precisa do scheme pgx5:// que o golang-migrate espera.
func RunMigrations(connString, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, connString)
	if err != nil {
		return fmt.Errorf("falha ao preparar migrações: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("ℹ️ Migrações já aplicadas, nada a fazer")
			return nil
		}
		return fmt.Errorf("falha ao aplicar migrações: %w", err)
	}

	log.Println("✅ Migrações aplicadas")
	return nil
}
