package types

const FilenameMaxLen = 255

type DirEntry struct {
	Name    string
	Ino     Ino
	Removed bool
}
