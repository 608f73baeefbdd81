package api

// AvatarBasicListData is the roster summary payload.
type AvatarBasicListData struct {
	AvatarList []AvatarBasic `json:"avatar_list"`
}

type AvatarBasic struct {
	ID        int64  `json:"id"`
	Level     int    `json:"level"`
	Rank      int    `json:"rank"`
	NameMi18n string `json:"name_mi18n"`
}

// AvatarDetailData is the full per-character payload.
type AvatarDetailData struct {
	AvatarList []AvatarDetail `json:"avatar_list"`
}

type AvatarDetail struct {
	ID         int64      `json:"id"`
	Level      int        `json:"level"`
	Rank       int        `json:"rank"`
	Properties []Property `json:"properties"`
	Skills     []Skill    `json:"skills"`
	Weapon     *Weapon    `json:"weapon"`
}

// Property values arrive as display strings ("7,673" or "24%"); the
// mapping layer parses them.
type Property struct {
	PropertyID int    `json:"property_id"`
	Base       string `json:"base"`
	Final      string `json:"final"`
}

type Skill struct {
	Level     int `json:"level"`
	SkillType int `json:"skill_type"`
}

type Weapon struct {
	ID         int64      `json:"id"`
	Level      int        `json:"level"`
	Star       int        `json:"star"`
	Properties []Property `json:"main_properties"`
}

// EnergyData is the battery charge payload. Restore is seconds until
// fully charged; DayType/Hour/Minute describe when that happens.
type EnergyData struct {
	Energy struct {
		Progress struct {
			Max     int `json:"max"`
			Current int `json:"current"`
		} `json:"progress"`
		Restore int `json:"restore"`
		DayType int `json:"day_type"`
		Hour    int `json:"hour"`
		Minute  int `json:"minute"`
	} `json:"energy"`
}

// AvatarCalcData is the per-character upgrade-cost payload: what the
// upgrade would consume, what is still missing, and what the account
// owns. The owned map is account-global, so overlapping results from
// different characters are expected and idempotent.
type AvatarCalcData struct {
	AvatarConsume     []CalcItem     `json:"avatar_consume"`
	WeaponConsume     []CalcItem     `json:"weapon_consume"`
	SkillConsume      []CalcItem     `json:"skill_consume"`
	NeedGet           []CalcItem     `json:"need_get"`
	UserOwnsMaterials map[string]int `json:"user_owns_materials"`
}

type CalcItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Num  int    `json:"num"`
}
