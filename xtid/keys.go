package xtid

import (
	"regexp"
	"strconv"
	"strings"
)

const ondemandBase = "https://abs.twimg.com/responsive-web/client-web/ondemand.s."

var (
	ondemandRe   = regexp.MustCompile(`['"]ondemand\.s['"]:\s*['"](\w*)['"]`)
	keyIndexRe   = regexp.MustCompile(`\(\w\[(\d{1,2})\],\s*16\)`)
	verifyKeyRe  = regexp.MustCompile(`<meta[^>]+name=["']twitter-site-verification["'][^>]+content=["']([^"']+)["']`)
	verifyKeyAlt = regexp.MustCompile(`<meta[^>]+content=["']([^"']+)["'][^>]+name=["']twitter-site-verification["']`)
	animPathRe   = regexp.MustCompile(`<path[^>]*d=["']([^"']+)["'][^>]*fill=["']#1d9bf008["']`)
	animPathAlt  = regexp.MustCompile(`<path[^>]*fill=["']#1d9bf008["'][^>]*d=["']([^"']+)["']`)
	integerRe    = regexp.MustCompile(`-?\d+`)
)

var animFrameRes [4]*regexp.Regexp

func init() {
	for i := range animFrameRes {
		animFrameRes[i] = regexp.MustCompile(`<svg[^>]*id=["']loading-x-anim-` + strconv.Itoa(i) + `["'][^>]*>[\s\S]*?</svg>`)
	}
}

func firstGroup(s string, res ...*regexp.Regexp) string {
	for _, re := range res {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// verificationKey extracts the twitter-site-verification meta content.
func verificationKey(html string) string {
	return firstGroup(html, verifyKeyRe, verifyKeyAlt)
}

// ondemandURL locates the ondemand.s chunk referenced by the home page.
func ondemandURL(html string) string {
	name := firstGroup(html, ondemandRe)
	if name == "" {
		return ""
	}
	return ondemandBase + name + "a.js"
}

// keyIndices returns the row index and the frame-time indices referenced
// by the ondemand script.
func keyIndices(js string) (int, []int) {
	var idx []int
	for _, m := range keyIndexRe.FindAllStringSubmatch(js, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			idx = append(idx, n)
		}
	}
	if len(idx) == 0 {
		return 0, nil
	}
	return idx[0], idx[1:]
}

// animationFrames returns the curve rows of the four loading animations.
// Missing frames are left nil.
func animationFrames(html string) [4][][]int {
	var frames [4][][]int
	for i, re := range animFrameRes {
		svg := re.FindString(html)
		if svg == "" {
			continue
		}
		if d := firstGroup(svg, animPathRe, animPathAlt); d != "" {
			frames[i] = pathRows(d)
		}
	}
	return frames
}

// pathRows splits an SVG path on its C commands and parses each segment's integers.
func pathRows(d string) [][]int {
	segments := strings.Split(d, "C")
	rows := make([][]int, 0, len(segments))
	for _, seg := range segments[1:] {
		var row []int
		for _, n := range integerRe.FindAllString(seg, -1) {
			if v, err := strconv.Atoi(n); err == nil {
				row = append(row, v)
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}
