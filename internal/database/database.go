package database

import (
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// GetDSN は環境変数からMySQL接続文字列 (DSN) を構築します。
func GetDSN() string {
	// main.go で godotenv.Load() が呼び出されるため、ここでは省略
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASS")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, name)
}

// Open はDB_DRIVERに応じてデータベース接続を開きます。
// "mysql" のときは環境変数のDSN、それ以外はSQLiteファイル (DB_PATH, 既定 tasks.db)。
func Open() (*sqlx.DB, error) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	switch driver {
	case "mysql":
		db, err := sqlx.Open("mysql", GetDSN())
		if err != nil {
			return nil, fmt.Errorf("could not open mysql connection: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		return db, nil
	case "sqlite":
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = "tasks.db"
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", driver)
	}
}

// OpenSQLite は指定パスのSQLiteデータベースを開きます。テストでも使います。
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite db: %w", err)
	}

	// 書き込みと読み取りが競合しないようWALモードを有効化
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not enable WAL mode: %w", err)
	}
	// タスク削除時に通知をカスケード削除するため外部キーを有効化
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not enable foreign keys: %w", err)
	}
	return db, nil
}

// InitDB はデータベース接続を初期化し、スキーマを適用します。起動時に使います。
func InitDB() *sqlx.DB {
	db, err := Open()
	if err != nil {
		log.Fatalf("Fatal: Failed to open database connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Fatal: Failed to ping database: %v", err)
	}
	if err := Migrate(db); err != nil {
		log.Fatalf("Fatal: Failed to migrate database: %v", err)
	}
	log.Println("Successfully connected to database!")
	return db
}

// sqliteSchema / mysqlSchema は同じ論理スキーマの方言違いです。
// notifications には スイープ用の (fired, fire_at) 複合インデックスを張ります。
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date DATETIME,
		priority INTEGER NOT NULL DEFAULT 2,
		status TEXT NOT NULL DEFAULT 'pending',
		category TEXT NOT NULL DEFAULT 'General',
		completed INTEGER NOT NULL DEFAULT 0,
		reminder_enabled INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		task_id INTEGER NOT NULL,
		fire_at DATETIME NOT NULL,
		fired INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL,
		read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_fired_fire_at ON notifications(fired, fire_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(255) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		due_date DATETIME,
		priority INT NOT NULL DEFAULT 2,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		category VARCHAR(100) NOT NULL DEFAULT 'General',
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		reminder_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		INDEX idx_tasks_user (user_id)
	)`,
	"CREATE TABLE IF NOT EXISTS notifications (" +
		"id INT AUTO_INCREMENT PRIMARY KEY," +
		"user_id INT NOT NULL," +
		"task_id INT NOT NULL," +
		"fire_at DATETIME NOT NULL," +
		"fired BOOLEAN NOT NULL DEFAULT FALSE," +
		"message VARCHAR(512) NOT NULL," +
		"`read` BOOLEAN NOT NULL DEFAULT FALSE," +
		"created_at DATETIME NOT NULL," +
		"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE," +
		"FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE," +
		"INDEX idx_notifications_fired_fire_at (fired, fire_at)," +
		"INDEX idx_notifications_user (user_id)" +
		")",
}

// Migrate は接続中のドライバーに合わせてテーブルを作成します。
func Migrate(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "mysql" {
		schema = mysqlSchema
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("could not apply schema: %w", err)
		}
	}
	return nil
}
