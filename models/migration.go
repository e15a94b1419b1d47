package models

import (
	"log"

	"github.com/rahulkrishna-web/homerun-shipping-app/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&AppSetting{},
		&WebhookLog{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
