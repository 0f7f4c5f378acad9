package main

import (
	"fmt"
	"time"

	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/storage/database"
)

func (cli *commandLine) prune(retention time.Duration) error {
	conf := cli.conf.Notification
	if retention > 0 {
		conf.Retention = retention
	}

	svc, err := notification.NewService(database.NewNotificationRepository(cli.db), cli.logger, conf)
	if err != nil {
		return err
	}
	removed := svc.Prune(time.Now())
	fmt.Printf("pruned %d notification(s)\n", removed)
	return nil
}
