// Package db opens the PostgreSQL connection used by the gorm stores.
//
//	database, err := db.Connect(db.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string (required)
//   - TERRASO_LOG_LEVEL: set to "debug" to echo SQL
package db
