package models

import (
	"log"

	"github.com/seaharvest/lobsterstock_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&LobsterType{}, &WeightClass{},
		&InventoryRow{}, &Transaction{},
		&ChangeEventRecord{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
