package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultBaseURL is the root of the BLS QCEW bulk file tree.
const DefaultBaseURL = "https://data.bls.gov/cew/data/files"

// Default fetch window. The SIC-coded county files cover 1975 through 2000.
const (
	DefaultStartYear = 1975
	DefaultEndYear   = 1989
)

// Default file locations for the two stages.
const (
	DefaultFetchOutput = "qcew_county_quarterly_75_89.csv"
	DefaultCleanOutput = "2000_2024_county_clean.csv"
	DefaultHTTPTimeout = 60 * time.Second
)

// DefaultCleanInputs are the consolidated files for the two historical ranges.
var DefaultCleanInputs = []string{
	"qcew_county_quarterly_75_89.csv",
	"qcew_county_quarterly_90_25.csv",
}

// DefaultHostYears maps host county FIPS to the event year.
var DefaultHostYears = map[string]int{
	"12086": 2020, // Miami
	"22071": 2013, // New Orleans
	"06037": 2022, // Los Angeles
	"12057": 2021, // Tampa
	"04013": 2015, // Phoenix
	"06073": 2003, // San Diego
	"48201": 2017, // Houston
	"13121": 2019, // Atlanta
	"26125": 2006, // Detroit
	"06085": 2016, // San Francisco
	"27053": 2018, // Minneapolis
	"12031": 2005, // Jacksonville
	"48439": 2011, // Dallas
	"18097": 2012, // Indianapolis
	"34003": 2014, // New York (East Rutherford)
}

// DefaultControlFIPS are the control counties kept when subsetting.
var DefaultControlFIPS = []string{
	"24510", "36029", "47037", "55009", "53033", "42003", "39035",
	"42101", "39061", "17031", "37119", "25025", "24033", "29095",
}

// FetchConfig holds settings for the download stage.
type FetchConfig struct {
	BaseURL     string
	StartYear   int
	EndYear     int
	OutputPath  string
	ParquetPath string // optional second copy of the consolidated table
	Timeout     time.Duration
}

// CleanConfig holds settings for the cleaning stage.
type CleanConfig struct {
	InputPaths     []string
	OutputPath     string
	DropPre2000    bool
	SubsetControls bool
	HostYears      map[string]int
	ControlFIPS    []string
}

// Config holds application settings
type Config struct {
	Fetch       FetchConfig
	Clean       CleanConfig
	MetricsPath string // optional textfile for run counters
}

// Default returns the configuration the pipeline runs with when no flags are given.
func Default() Config {
	hosts := make(map[string]int, len(DefaultHostYears))
	for k, v := range DefaultHostYears {
		hosts[k] = v
	}
	return Config{
		Fetch: FetchConfig{
			BaseURL:    DefaultBaseURL,
			StartYear:  DefaultStartYear,
			EndYear:    DefaultEndYear,
			OutputPath: DefaultFetchOutput,
			Timeout:    DefaultHTTPTimeout,
		},
		Clean: CleanConfig{
			InputPaths:     append([]string(nil), DefaultCleanInputs...),
			OutputPath:     DefaultCleanOutput,
			DropPre2000:    true,
			SubsetControls: false,
			HostYears:      hosts,
			ControlFIPS:    append([]string(nil), DefaultControlFIPS...),
		},
	}
}

// Validate checks the fetch settings.
func (c FetchConfig) Validate() error {
	var err error
	if c.BaseURL == "" {
		err = errors.Join(err, errors.New("base URL is required"))
	}
	if c.StartYear > c.EndYear {
		err = errors.Join(err, fmt.Errorf("start year %d is after end year %d", c.StartYear, c.EndYear))
	}
	if c.OutputPath == "" {
		err = errors.Join(err, errors.New("fetch output path is required"))
	}
	if c.Timeout <= 0 {
		err = errors.Join(err, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	return err
}

// Validate checks the clean settings.
func (c CleanConfig) Validate() error {
	var err error
	if len(c.InputPaths) == 0 {
		err = errors.Join(err, errors.New("at least one clean input is required"))
	}
	if c.OutputPath == "" {
		err = errors.Join(err, errors.New("clean output path is required"))
	}
	return err
}
