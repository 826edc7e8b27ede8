// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

// Package catalog persists the mounted publications, so that a restarted server
// mounts them again. Drivers are registered by the main package.
package catalog

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("publication not found")

// Entry is a mounted publication
type Entry struct {
	Mount string `json:"mount"`
	// Location is the local path or the store reference the archive was opened from
	Location   string    `json:"location"`
	Identifier string    `json:"identifier,omitempty"`
	Title      string    `json:"title,omitempty"`
	MimeType   string    `json:"type,omitempty"`
	Added      time.Time `json:"added"`
}

type Catalog interface {
	Get(mount string) (Entry, error)
	Add(e Entry) error
	Remove(mount string) error
	List() func() (Entry, error)
}

type dbCatalog struct {
	db     *sql.DB
	get    *sql.Stmt
	add    *sql.Stmt
	remove *sql.Stmt
	list   *sql.Stmt
}

const columns = "mount, location, identifier, title, mime_type, added"

func (c dbCatalog) Get(mount string) (Entry, error) {
	records, err := c.get.Query(mount)
	if err != nil {
		return Entry{}, err
	}
	defer records.Close()
	if records.Next() {
		var e Entry
		err = records.Scan(&e.Mount, &e.Location, &e.Identifier, &e.Title, &e.MimeType, &e.Added)
		return e, err
	}
	return Entry{}, ErrNotFound
}

func (c dbCatalog) Add(e Entry) error {
	if e.Added.IsZero() {
		e.Added = time.Now()
	}
	_, err := c.add.Exec(e.Mount, e.Location, e.Identifier, e.Title, e.MimeType, e.Added.UTC().Truncate(time.Second))
	return err
}

func (c dbCatalog) Remove(mount string) error {
	res, err := c.remove.Exec(mount)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns an iterator over the entries, in mount order. The iterator returns
// ErrNotFound after the last entry.
func (c dbCatalog) List() func() (Entry, error) {
	rows, err := c.list.Query()
	if err != nil {
		return func() (Entry, error) { return Entry{}, err }
	}
	return func() (Entry, error) {
		var e Entry
		var err error
		if rows.Next() {
			err = rows.Scan(&e.Mount, &e.Location, &e.Identifier, &e.Title, &e.MimeType, &e.Added)
		} else {
			rows.Close()
			err = ErrNotFound
		}
		return e, err
	}
}

func tableDef(driver string) string {
	switch driver {
	case "sqlserver", "mssql":
		return `IF OBJECT_ID(N'dbo.publication', N'U') IS NULL
CREATE TABLE publication (mount nvarchar(255) PRIMARY KEY, location nvarchar(1024) NOT NULL,
identifier nvarchar(255), title nvarchar(1024), mime_type nvarchar(255), added datetime2 NOT NULL)`
	case "postgres":
		return `CREATE TABLE IF NOT EXISTS publication (mount varchar(255) PRIMARY KEY, location varchar(1024) NOT NULL,
identifier varchar(255), title varchar(1024), mime_type varchar(255), added timestamp NOT NULL)`
	}
	return `CREATE TABLE IF NOT EXISTS publication (mount varchar(255) PRIMARY KEY, location varchar(1024) NOT NULL,
identifier varchar(255), title varchar(1024), mime_type varchar(255), added datetime NOT NULL)`
}

// Open creates the catalog table if needed and prepares the statements
func Open(db *sql.DB, driver string) (c Catalog, err error) {
	if _, err = db.Exec(tableDef(driver)); err != nil {
		return
	}
	get, err := db.Prepare(GetParamQuery(driver, "SELECT "+columns+" FROM publication WHERE mount = ?"))
	if err != nil {
		return
	}
	add, err := db.Prepare(GetParamQuery(driver, "INSERT INTO publication ("+columns+") VALUES (?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return
	}
	remove, err := db.Prepare(GetParamQuery(driver, "DELETE FROM publication WHERE mount = ?"))
	if err != nil {
		return
	}
	list, err := db.Prepare("SELECT " + columns + " FROM publication ORDER BY mount")
	if err != nil {
		return
	}
	c = dbCatalog{db: db, get: get, add: add, remove: remove, list: list}
	return
}

// OpenURI opens the database of a "driver://connection" uri and its catalog
func OpenURI(uri string) (Catalog, *sql.DB, error) {
	driver, cnxn, err := dbFromURI(uri)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(driver, cnxn)
	if err != nil {
		return nil, nil, err
	}
	if driver == "sqlite3" {
		if strings.Contains(cnxn, ":memory:") {
			// every connection would get its own memory database
			db.SetMaxOpenConns(1)
		} else if !strings.Contains(cnxn, "_journal") {
			if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
	}
	c, err := Open(db, driver)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return c, db, nil
}
