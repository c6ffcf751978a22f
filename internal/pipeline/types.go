package pipeline

import "github.com/KaramelBytes/carloom-cli/internal/dataset"

// Enriched is a cleaned record plus derived features.
type Enriched struct {
	dataset.RawRecord
	Age       int
	Automatic int
	Doors     int
	KM        float64
}

// Car is an enriched record that survived the outlier filter, keyed by CarID.
type Car struct {
	CarID int
	Enriched
}

// CarSpecs holds the descriptive columns of a Car.
type CarSpecs struct {
	CarID        int
	Model        string
	Year         int
	Transmission string
	Mileage      float64
	FuelType     string
	MPG          float64
	EngineSize   float64
	Age          int
	Automatic    int
	Doors        int
	KM           float64
}

// Pricing holds the monetary columns of a Car.
type Pricing struct {
	CarID int
	Price float64
	Tax   float64
}
