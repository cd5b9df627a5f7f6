package models

import "github.com/saltyorg/norm/database"

const createProducts = `
CREATE TABLE products (
	%s,
	name VARCHAR(200) NOT NULL,
	price DECIMAL(10,2) NOT NULL,
	category VARCHAR(50),
	in_stock BOOLEAN DEFAULT TRUE
);
`

const alterProducts = `
CREATE INDEX IF NOT EXISTS products_category_idx ON products (category);
`

// ProductColumns are the visible columns of products. in_stock is managed
// by the database only.
var ProductColumns = []string{"name", "price", "category"}

// NewProducts binds the products catalog.
func NewProducts(m *database.Manager) (*database.Table, error) {
	return database.NewTable(m, "products", ProductColumns,
		database.WithCreate(ddl(createProducts)),
		database.WithAlter(ddl(alterProducts)),
	)
}
