package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"     // postgres driver
	_ "modernc.org/sqlite"    // sqlite driver, pure Go
)

// LoadDB reads a catalog from a relational store. driver is "sqlite" or
// "postgres". The schema mirrors the YAML shape:
//
//	apis(id, path, method, description, category, returns_type,
//	     returns_description)
//	api_parameters(api_id, name, type, required, is_integer, description, pos)
//	api_returns(api_id, field, type)
//	api_dependencies(api_id, depends_on_path, reason)
//	api_keywords(api_id, keyword)
func LoadDB(driver, dsn string) (*Catalog, error) {
	name := driver
	if name == "" {
		name = "sqlite"
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog db: open: %w", err)
	}
	defer func() { _ = db.Close() }()
	return loadFromDB(db)
}

func loadFromDB(db *sql.DB) (*Catalog, error) {
	apis := make(map[string]*Descriptor)

	rows, err := db.Query(`SELECT id, path, method, description, category, returns_type, returns_description FROM apis`)
	if err != nil {
		return nil, fmt.Errorf("catalog db: apis: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var d Descriptor
		var id string
		if err := rows.Scan(&id, &d.Path, &d.Method, &d.Description, &d.Category,
			&d.Returns.Type, &d.Returns.Description); err != nil {
			return nil, fmt.Errorf("catalog db: scan api: %w", err)
		}
		apis[id] = &d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog db: apis: %w", err)
	}
	if len(apis) == 0 {
		return nil, fmt.Errorf("catalog db: no apis")
	}

	if err := loadParameters(db, apis); err != nil {
		return nil, err
	}
	if err := loadReturnFields(db, apis); err != nil {
		return nil, err
	}
	if err := loadDependencies(db, apis); err != nil {
		return nil, err
	}
	if err := loadKeywords(db, apis); err != nil {
		return nil, err
	}
	return New(apis), nil
}

func loadParameters(db *sql.DB, apis map[string]*Descriptor) error {
	rows, err := db.Query(`SELECT api_id, name, type, required, is_integer, description FROM api_parameters ORDER BY api_id, pos`)
	if err != nil {
		return fmt.Errorf("catalog db: parameters: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var apiID, name, typ, desc string
		var required, isInt bool
		if err := rows.Scan(&apiID, &name, &typ, &required, &isInt, &desc); err != nil {
			return fmt.Errorf("catalog db: scan parameter: %w", err)
		}
		d, ok := apis[apiID]
		if !ok {
			continue
		}
		d.Parameters = append(d.Parameters, ParameterSpec{
			Name:        name,
			Type:        ParseParamType(typ),
			Required:    required,
			Integer:     isInt,
			Description: desc,
		})
	}
	return rows.Err()
}

func loadReturnFields(db *sql.DB, apis map[string]*Descriptor) error {
	rows, err := db.Query(`SELECT api_id, field, type FROM api_returns`)
	if err != nil {
		return fmt.Errorf("catalog db: returns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var apiID, field, typ string
		if err := rows.Scan(&apiID, &field, &typ); err != nil {
			return fmt.Errorf("catalog db: scan return field: %w", err)
		}
		d, ok := apis[apiID]
		if !ok {
			continue
		}
		if d.Returns.Structure == nil {
			d.Returns.Structure = make(map[string]string)
		}
		d.Returns.Structure[field] = typ
	}
	return rows.Err()
}

func loadDependencies(db *sql.DB, apis map[string]*Descriptor) error {
	rows, err := db.Query(`SELECT api_id, depends_on_path, reason FROM api_dependencies`)
	if err != nil {
		return fmt.Errorf("catalog db: dependencies: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var apiID, dep, reason string
		if err := rows.Scan(&apiID, &dep, &reason); err != nil {
			return fmt.Errorf("catalog db: scan dependency: %w", err)
		}
		d, ok := apis[apiID]
		if !ok {
			continue
		}
		d.Dependencies = append(d.Dependencies, Dependency{API: dep, Reason: reason})
	}
	return rows.Err()
}

func loadKeywords(db *sql.DB, apis map[string]*Descriptor) error {
	rows, err := db.Query(`SELECT api_id, keyword FROM api_keywords`)
	if err != nil {
		return fmt.Errorf("catalog db: keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var apiID, kw string
		if err := rows.Scan(&apiID, &kw); err != nil {
			return fmt.Errorf("catalog db: scan keyword: %w", err)
		}
		d, ok := apis[apiID]
		if !ok {
			continue
		}
		d.IntentKeywords = append(d.IntentKeywords, kw)
	}
	return rows.Err()
}
