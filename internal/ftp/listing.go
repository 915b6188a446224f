package ftp

import (
	"fmt"
	"io/fs"
	"runtime"
	"time"
)

// formatEntry renders one directory entry in ls -l style:
//
//	<perms> 1 root group <size> <timestamp> <name>\r\n
func formatEntry(info fs.FileInfo, now time.Time) string {
	perms := permString(info)
	size := info.Size()
	ts := timestamp(info.ModTime(), now)

	return fmt.Sprintf("%s %3d %-8s %-8s %12d %s %s\r\n",
		perms, 1, "root", "group", size, ts, info.Name())
}

// permString builds the 10-character Unix-style permission string. On
// platforms without real mode bits, it falls back to a read-only or
// read-write approximation.
func permString(info fs.FileInfo) string {
	var b [10]byte
	if info.IsDir() {
		b[0] = 'd'
	} else {
		b[0] = '-'
	}

	mode := info.Mode()
	if runtime.GOOS == "windows" {
		if mode&0o200 == 0 {
			return string(b[0]) + "r--r--r--"
		}
		return string(b[0]) + "rw-r--r--"
	}

	bits := []struct {
		mask uint32
		ch   byte
	}{
		{0o400, 'r'}, {0o200, 'w'}, {0o100, 'x'},
		{0o040, 'r'}, {0o020, 'w'}, {0o010, 'x'},
		{0o004, 'r'}, {0o002, 'w'}, {0o001, 'x'},
	}
	perm := uint32(mode.Perm())
	for i, bit := range bits {
		if perm&bit.mask != 0 {
			b[i+1] = bit.ch
		} else {
			b[i+1] = '-'
		}
	}
	return string(b[:])
}

// timestamp formats mtime the way `ls -l` does: "Mon DD HH:MM" when
// recent (within six calendar months before now), else "Mon DD  YYYY"
// (two spaces before the year).
func timestamp(mtime, now time.Time) string {
	if mtime.After(now.AddDate(0, -6, 0)) && !mtime.After(now) {
		return mtime.Format("Jan _2 15:04")
	}
	return mtime.Format("Jan _2  2006")
}
