package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// GenerateRandomCrewName 以队长的名字命名施工队
func GenerateRandomCrewName() string {
	return GenerateRandomChineseName() + "施工队"
}

var digits = "0123456789"

// GenerateResourceCode 用施工队名称的拼音首字母加上随机数字生成资源编号，例如 “王伟施工队” -> "WWSGD-042"
func GenerateResourceCode(crewName string) string {
	initials := pinyin.LazyPinyin(crewName, pinyin.Args{Style: pinyin.FirstLetter})

	code := strings.ToUpper(strings.Join(initials, ""))
	if code == "" {
		code = "CREW"
	}

	suffix := make([]byte, 3)
	for i := range suffix {
		suffix[i] = digits[rand.Intn(len(digits))]
	}

	return code + "-" + string(suffix)
}

var letters = []rune("abcdefghijklmnopqrstuvwxyz")

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// 用 Fisher-Yates 洗牌算法来生成随机的工作日
func GenerateRandomWorkingDays() []int32 {
	days := []int32{1, 2, 3, 4, 5, 6, 7}

	for i := len(days) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		days[i], days[j] = days[j], days[i]
	}

	n := rand.Intn(len(days)) + 1

	return days[:n]
}

// GenerateRandomWorkTeamShift 生成 1 到 3 个互不重叠、按刻钟对齐的班次窗口
func GenerateRandomWorkTeamShift(resourceID, name string) *domain.WorkTeamShift {
	shift := &domain.WorkTeamShift{
		ResourceID:  resourceID,
		Name:        name,
		WorkingDays: GenerateRandomWorkingDays(),
	}

	windowsNum := rand.Intn(3) + 1
	hourPerWindow := 24 / windowsNum
	shift.Shifts = make([]domain.ShiftWindow, windowsNum)

	for i := range shift.Shifts {
		startHour := i*hourPerWindow + rand.Intn(hourPerWindow/2)
		endHour := startHour + rand.Intn(hourPerWindow/2) + 1

		shift.Shifts[i] = domain.ShiftWindow{
			StartTime: fmt.Sprintf("%02d:%02d:00", startHour, rand.Intn(4)*15),
			EndTime:   fmt.Sprintf("%02d:%02d:00", endHour, rand.Intn(4)*15),
		}
	}

	return shift
}

func GenerateRandomCalendarConfig(countryCode, businessUnit string) *domain.CalendarConfig {
	return &domain.CalendarConfig{
		CountryCode:                countryCode,
		BusinessUnit:               businessUnit,
		GlobalBufferNonWorkingDays: rand.Intn(5),
		StaticBufferNonWorkingDays: rand.Intn(3),
		TravelBufferMinutes:        rand.Intn(5) * 15,
		WorkingDays:                []int32{1, 2, 3, 4, 5},
	}
}
