package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_recvault() {
    local cur prev words cword
    _init_completion || return

    local commands="init put get ls status rm passwd migrate diff export import compact help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    local ids
    case "$cmd" in
        put)
            if [[ "$prev" == "-kind" ]]; then
                COMPREPLY=($(compgen -W "password note otp" -- "$cur"))
            elif [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-id -kind" -- "$cur"))
            fi
            ;;
        get|rm|diff)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-o" -- "$cur"))
            elif [[ "$prev" == "-o" ]] || [[ "$cmd" == "diff" && $cword -eq 3 ]]; then
                _filedir json
            else
                # Complete with record IDs from vault
                ids=$(recvault ls 2>/dev/null | tail -n +2 | awk '{print $1}')
                COMPREPLY=($(compgen -W "$ids" -- "$cur"))
            fi
            ;;
        ls)
            COMPREPLY=($(compgen -W "-search" -- "$cur"))
            ;;
        export)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-force" -- "$cur"))
            else
                _filedir json
            fi
            ;;
        import)
            _filedir json
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _recvault recvault
`

const zshCompletion = `#compdef recvault

_recvault() {
    local -a commands
    commands=(
        'init:Create a .recvault vault in current directory'
        'put:Seal a record from name=value fields'
        'get:Decrypt and show a record'
        'ls:List records, optionally searching'
        'status:Show vault status'
        'rm:Remove records from the vault'
        'passwd:Change vault passphrase'
        'migrate:Upgrade records to the current format'
        'diff:Compare a record with a local JSON file'
        'export:Write sealed records to a bundle'
        'import:Add sealed records from a bundle'
        'compact:Compact vault to reclaim disk space'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'recvault commands' commands
            ;;
        args)
            case "${words[2]}" in
                put)
                    _arguments \
                        '-id[Record ID]:id:_recvault_ids' \
                        '-kind[Record kind]:kind:(password note otp)' \
                        '*:field (name=value):'
                    ;;
                get)
                    _arguments \
                        '-o[Write decrypted JSON to file]:file:_files' \
                        '1:record:_recvault_ids'
                    ;;
                rm)
                    _arguments '*:record:_recvault_ids'
                    ;;
                diff)
                    _arguments '1:record:_recvault_ids' '2:file:_files -g "*.json"'
                    ;;
                ls)
                    _arguments '-search[Search title, username and url]:term:'
                    ;;
                export)
                    _arguments '-force[Overwrite existing file]' '1:file:_files'
                    ;;
                import)
                    _arguments '1:file:_files -g "*.json"'
                    ;;
                help)
                    _describe -t commands 'recvault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_recvault_ids() {
    local -a ids
    ids=(${(f)"$(recvault ls 2>/dev/null | tail -n +2 | awk '{print $1}')"})
    _describe -t ids 'record IDs' ids
}

_recvault "$@"
`

const fishCompletion = `# recvault fish completions

set -l commands init put get ls status rm passwd migrate diff export import compact help completion

complete -c recvault -f

function __recvault_ids
    recvault ls 2>/dev/null | tail -n +2 | awk '{print $1}'
end

# Commands
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a .recvault vault'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a put -d 'Seal a record'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a get -d 'Show a record'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List records'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault status'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove records'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change vault passphrase'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a migrate -d 'Upgrade record format'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare record with local file'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a export -d 'Export sealed records'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import sealed records'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c recvault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# put flags
complete -c recvault -n "__fish_seen_subcommand_from put" -o id -d 'Record ID'
complete -c recvault -n "__fish_seen_subcommand_from put" -o kind -a "password note otp" -d 'Record kind'

# record IDs
complete -c recvault -n "__fish_seen_subcommand_from get rm diff" -a "(__recvault_ids)"
complete -c recvault -n "__fish_seen_subcommand_from get" -o o -r -F -d 'Write decrypted JSON to file'
complete -c recvault -n "__fish_seen_subcommand_from diff export import" -F

# ls and export flags
complete -c recvault -n "__fish_seen_subcommand_from ls" -o search -r -d 'Search title, username and url'
complete -c recvault -n "__fish_seen_subcommand_from export" -o force -d 'Overwrite existing file'

# help completions
complete -c recvault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c recvault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
