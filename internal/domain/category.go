// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "fmt"

// Category is an upstream category code of the form "<major>_<minor>".
// Only the enumerated codes below are valid; CategoryAll means "all"/unspecified.
type Category string

const (
	CategoryAll                  Category = "0_0"
	CategoryAnime                Category = "1_0"
	CategoryAnimeAMV             Category = "1_1"
	CategoryAnimeEnglish         Category = "1_2"
	CategoryAnimeNonEnglish      Category = "1_3"
	CategoryAnimeRaw             Category = "1_4"
	CategoryAudio                Category = "2_0"
	CategoryAudioLossless        Category = "2_1"
	CategoryAudioLossy           Category = "2_2"
	CategoryLiterature           Category = "3_0"
	CategoryLiteratureEnglish    Category = "3_1"
	CategoryLiteratureNonEnglish Category = "3_2"
	CategoryLiteratureRaw        Category = "3_3"
	CategoryLiveAction           Category = "4_0"
	CategoryLiveActionEnglish    Category = "4_1"
	CategoryLiveActionIdol       Category = "4_2"
	CategoryLiveActionNonEnglish Category = "4_3"
	CategoryLiveActionRaw        Category = "4_4"
	CategoryPictures             Category = "5_0"
	CategoryPicturesGraphics     Category = "5_1"
	CategoryPicturesPhotos       Category = "5_2"
	CategorySoftware             Category = "6_0"
	CategorySoftwareApps         Category = "6_1"
	CategorySoftwareGames        Category = "6_2"
)

var categoryNames = map[Category]string{
	CategoryAll:                  "All",
	CategoryAnime:                "Anime",
	CategoryAnimeAMV:             "Anime - AMV",
	CategoryAnimeEnglish:         "Anime - English",
	CategoryAnimeNonEnglish:      "Anime - Non-English",
	CategoryAnimeRaw:             "Anime - Raw",
	CategoryAudio:                "Audio",
	CategoryAudioLossless:        "Audio - Lossless",
	CategoryAudioLossy:           "Audio - Lossy",
	CategoryLiterature:           "Literature",
	CategoryLiteratureEnglish:    "Literature - English",
	CategoryLiteratureNonEnglish: "Literature - Non-English",
	CategoryLiteratureRaw:        "Literature - Raw",
	CategoryLiveAction:           "Live Action",
	CategoryLiveActionEnglish:    "Live Action - English",
	CategoryLiveActionIdol:       "Live Action - Idol/PV",
	CategoryLiveActionNonEnglish: "Live Action - Non-English",
	CategoryLiveActionRaw:        "Live Action - Raw",
	CategoryPictures:             "Pictures",
	CategoryPicturesGraphics:     "Pictures - Graphics",
	CategoryPicturesPhotos:       "Pictures - Photos",
	CategorySoftware:             "Software",
	CategorySoftwareApps:         "Software - Apps",
	CategorySoftwareGames:        "Software - Games",
}

// ParseCategory validates a wire code against the enumerated set.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categoryNames[c]; !ok {
		return "", fmt.Errorf("invalid category: %q", s)
	}
	return c, nil
}

// Valid reports whether the category is one of the enumerated codes.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}

// English returns the human-readable display name for the category.
func (c Category) English() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}
