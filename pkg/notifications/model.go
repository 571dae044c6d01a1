package notifications

import "github.com/nicholas-fedor/dockerpoller/pkg/types"

// StaticData is the part of the notification template data model set upon initialization.
type StaticData struct {
	Title string `json:"title"`
	Host  string `json:"host"`
}

// Data is the notification template data model.
type Data struct {
	StaticData

	Updates []types.PackageUpdate `json:"updates"`
}
