// Команда migrate применяет или откатывает миграции схемы вручную.
package main

import (
	"context"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	down := flag.Bool("down", false, "откатить одну миграцию вместо применения")
	flag.Parse()

	dsn := os.Getenv("STOREFRONT_PG_DSN")
	if dsn == "" {
		log.Fatal("STOREFRONT_PG_DSN не задан")
	}

	ctx := context.Background()
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		log.WithError(err).Fatal("не удалось подключиться к postgres")
	}
	defer func() {
		_ = store.Close()
	}()

	if *down {
		if err := store.MigrateDown(); err != nil {
			log.WithError(err).Fatal("откат миграции завершился с ошибкой")
		}
		log.Info("миграция откатена")
		return
	}

	if err := store.MigrateUp(); err != nil {
		log.WithError(err).Fatal("применение миграций завершилось с ошибкой")
	}
	log.Info("миграции применены")
}
