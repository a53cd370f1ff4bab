package model

import "time"

type Activity struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
}

type ActivityStats struct {
	RecentListings int64  `json:"recentListings"`
	RecentPayments int64  `json:"recentPayments"`
	TotalViews     int64  `json:"totalViews"`
	Period         string `json:"period"`
}
