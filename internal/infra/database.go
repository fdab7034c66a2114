package infra

import (
	"fmt"

	"barpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and migrates the
// schema. TranslateError is required: the repositories rely on
// gorm.ErrDuplicatedKey to detect retried ledger inserts and duplicate codes.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate for every model and then the postgres-only patches.
// It is shared by NewDatabase and the integration tests.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Producto{},
		&model.MovimientoStock{},
		&model.Mesa{},
		&model.Comanda{},
		&model.ComandaItem{},
		&model.Venta{},
		&model.VentaItem{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM tags cannot express.
// Each statement is guarded by an existence check so re-running is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Last line of defence behind the conditional decrement.
		{"check productos.stock_actual >= 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_productos_stock_no_negativo') THEN
    ALTER TABLE productos ADD CONSTRAINT chk_productos_stock_no_negativo CHECK (stock_actual >= 0);
  END IF;
END $$`},
		{"check movimientos_stock.cantidad > 0", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_movimientos_cantidad_positiva') THEN
    ALTER TABLE movimientos_stock ADD CONSTRAINT chk_movimientos_cantidad_positiva CHECK (cantidad > 0);
  END IF;
END $$`},
		// At most one open tab per table.
		{"partial unique idx comandas abiertas por mesa",
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_comandas_mesa_abierta
			    ON comandas (mesa_id) WHERE estado = 'abierta'`},
		// Reconciliation sums completed rows per product.
		{"idx movimientos completados por producto",
			`CREATE INDEX IF NOT EXISTS idx_movimientos_producto_completado
			    ON movimientos_stock (producto_id) WHERE estado = 'completado'`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
